package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ManuGH/vidmark/internal/platform/httpx"
)

func runHealthcheckCLI(args []string) int {
	return healthcheck(args, os.Stdout, os.Stderr)
}

// healthcheck probes the ops API, for container HEALTHCHECK directives.
func healthcheck(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("healthcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "ready", "healthcheck mode: ready (default) or live")
	addr := fs.String("addr", "http://localhost:8080", "ops API base URL")
	timeout := fs.Duration("timeout", 5*time.Second, "check timeout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	path := "/healthz"
	if *mode == "ready" {
		path = "/readyz"
	}

	client := httpx.NewClient(httpx.Options{Timeout: *timeout})
	resp, err := client.Get(strings.TrimRight(*addr, "/") + path)
	if err != nil {
		fmt.Fprintf(stderr, "Healthcheck failed (network): %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Healthcheck failed (status): %s\n", resp.Status)
		return 1
	}
	fmt.Fprintf(stdout, "Healthcheck successful (%s)\n", *mode)
	return 0
}
