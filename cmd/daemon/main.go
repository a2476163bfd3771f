// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ManuGH/vidmark/internal/config"
	"github.com/ManuGH/vidmark/internal/daemon"
	"github.com/ManuGH/vidmark/internal/health"
	xglog "github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/version"
)

func main() {
	_, _ = maxprocs.Set()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML), defaults to $"+config.EnvPrefix+"CONFIG")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "vidmark",
		Version: version.Version,
	})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := resolveConfigPath(*configPath)
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: "vidmark",
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("main")

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", path).
		Msg("loaded configuration")
	for _, key := range loader.UnknownEnvKeys() {
		logger.Warn().Str("key", key).Str(xglog.FieldEvent, "config.unknown_env").Msg("unknown environment variable ignored")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().
			Err(err).
			Str(xglog.FieldEvent, "startup.check_failed").
			Msg("Startup checks failed. Please verify configuration and permissions.")
	}

	app, err := daemon.Build(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str(xglog.FieldEvent, "startup.failed").Msg("could not start bot")
	}
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.exit").Msg("bot exited with error")
		stop()
		os.Exit(1)
	}
}

// resolveConfigPath prefers the flag, then $VIDMARK_CONFIG. Empty means
// defaults plus environment only.
func resolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(config.EnvPrefix + "CONFIG"))
}
