// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vidmark/internal/config"
	"github.com/ManuGH/vidmark/internal/log"
)

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// PerformStartupChecks validates the environment and dependencies before the
// bot starts polling.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	if err := checkWritableDir(logger, "data", cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}
	if err := checkWritableDir(logger, "work", cfg.WorkDir); err != nil {
		return fmt.Errorf("work directory check failed: %w", err)
	}

	bin := strings.TrimSpace(cfg.FFmpeg.Bin)
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := lookPath(bin); err != nil {
		return fmt.Errorf("ffmpeg binary not found (%s): %w", bin, err)
	}
	logger.Info().Str("ffmpeg", bin).Msg("✓ ffmpeg available")

	if cfg.FFmpeg.FontFile != "" {
		if err := checkFileReadable(cfg.FFmpeg.FontFile); err != nil {
			return fmt.Errorf("font file error: %w", err)
		}
	}

	if strings.EqualFold(cfg.Session.Backend, "memory") {
		logger.Warn().
			Str("session_backend", cfg.Session.Backend).
			Msg("sessions are in memory; conversations restart after a restart of the bot")
	}

	tempDir := filepath.Clean(os.TempDir())
	dataDir := filepath.Clean(cfg.DataDir)
	if tempDir != "." && (dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("data_dir", cfg.DataDir).
			Msg("data directory is under temp; records and sessions may be lost on reboot")
	}

	logger.Info().Msg("✅ All startup checks passed")
	return ctx.Err()
}

func checkWritableDir(logger zerolog.Logger, label, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	// Check write permissions by creating a temp file
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msgf("✓ %s directory is writable", label)
	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config; verifying readability is expected
	if err != nil {
		return err
	}
	return f.Close()
}
