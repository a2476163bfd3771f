// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package procgroup runs child processes in their own process group so a
// whole tree (ffmpeg plus any helpers it forks) can be stopped together.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/metrics"
)

// DefaultGrace is how long a group gets between SIGTERM and SIGKILL.
const DefaultGrace = 2 * time.Second

// Terminate stops the process group of cmd: SIGTERM, then SIGKILL if the
// process has not exited within grace. waitCh must deliver the result of
// cmd.Wait; Terminate always drains it and returns that result.
// It is safe to call on nil commands (returns nil).
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	logger := log.WithComponent("procgroup")

	metrics.IncProcTerminate("SIGTERM", signalResult(Kill(cmd, syscall.SIGTERM)))

	select {
	case err := <-waitCh:
		if err == nil {
			metrics.IncProcWait("exit0")
		} else {
			metrics.IncProcWait("exit_nonzero")
		}
		return err
	case <-time.After(grace):
	}

	logger.Warn().Int("pid", cmd.Process.Pid).Dur("grace", grace).Msg("SIGTERM grace exceeded, sending SIGKILL to process group")
	metrics.IncProcTerminate("SIGKILL", signalResult(Kill(cmd, syscall.SIGKILL)))

	err := <-waitCh
	if err == nil {
		metrics.IncProcWait("forced_exit0")
	} else {
		metrics.IncProcWait("forced_error")
	}
	return err
}

func signalResult(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return "esrch"
	default:
		return "error"
	}
}
