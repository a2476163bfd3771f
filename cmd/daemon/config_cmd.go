// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/vidmark/internal/config"
	"github.com/ManuGH/vidmark/internal/version"
)

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  vidmark config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  vidmark config dump [--file|-f config.yaml] [--format=yaml|json]")
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vidmark config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := resolveConfigPath(file)
	if _, err := config.NewLoader(configPath, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(configPath), err)
		return 1
	}
	fmt.Fprintf(stdout, "%s is valid\n", displayPath(configPath))
	return 0
}

// runConfigDump prints the effective configuration (defaults, file, env)
// with secrets masked.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vidmark config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file, format string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	configPath := resolveConfigPath(file)
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(configPath), err)
		return 1
	}
	cfg = cfg.Redacted()

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

func displayPath(p string) string {
	if p == "" {
		return "environment"
	}
	return p
}
