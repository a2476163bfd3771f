// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/ManuGH/vidmark/internal/filtergraph"
	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/metrics"
	"github.com/ManuGH/vidmark/internal/procgroup"
)

const (
	defaultBinPath     = "ffmpeg"
	defaultStderrLines = 64
	stderrTailLines    = 20
)

// FFmpeg runs one ffmpeg process per Transform call.
type FFmpeg struct {
	BinPath   string
	Args      filtergraph.ArgsOptions
	KillGrace time.Duration // between SIGTERM and SIGKILL on cancellation
}

// NewFFmpeg returns an FFmpeg transcoder with defaults applied.
func NewFFmpeg(binPath string, args filtergraph.ArgsOptions, killGrace time.Duration) *FFmpeg {
	if binPath == "" {
		binPath = defaultBinPath
	}
	if killGrace <= 0 {
		killGrace = procgroup.DefaultGrace
	}
	return &FFmpeg{BinPath: binPath, Args: args, KillGrace: killGrace}
}

// Transform implements Transcoder. Cancelling ctx terminates the whole
// process group and returns an ExecutionError wrapping ctx.Err().
func (f *FFmpeg) Transform(ctx context.Context, input, expr, output string, onProgress func(time.Duration)) error {
	logger := log.WithContext(ctx, log.WithComponent("ffmpeg"))

	args, err := filtergraph.Args(input, expr, output, f.Args)
	if err != nil {
		return &ExecutionError{ExitCode: -1, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &ExecutionError{ExitCode: -1, Err: err}
	}

	bin := f.BinPath
	if bin == "" {
		bin = defaultBinPath
	}
	ring := NewLineRing(defaultStderrLines)

	// #nosec G204 -- argv is built without a shell
	cmd := exec.Command(bin, args...)
	procgroup.Set(cmd)
	cmd.Stdout = newProgressWriter(onProgress)
	cmd.Stderr = ring

	start := time.Now()
	if err := cmd.Start(); err != nil {
		metrics.RecordFFmpegExit("start_failed")
		return &ExecutionError{ExitCode: -1, Err: fmt.Errorf("start: %w", err)}
	}
	logger.Debug().Int("pid", cmd.Process.Pid).Str(log.FieldInputPath, input).Str(log.FieldOutputPath, output).Msg("ffmpeg started")

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-ctx.Done():
		_ = procgroup.Terminate(cmd, waitCh, f.grace())
		metrics.RecordFFmpegExit("killed")
		logger.Info().Dur("elapsed", time.Since(start)).Msg("ffmpeg canceled")
		return &ExecutionError{ExitCode: -1, Stderr: ring.LastN(stderrTailLines), Err: ctx.Err()}
	}

	if waitErr != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		tail := ring.LastN(stderrTailLines)
		metrics.RecordFFmpegExit("error")
		logger.Warn().Int(log.FieldExitCode, code).Strs("stderr", tail).Msg("ffmpeg failed")
		return &ExecutionError{ExitCode: code, Stderr: tail, Err: waitErr}
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		metrics.RecordFFmpegExit("empty_output")
		return &ExecutionError{ExitCode: 0, Stderr: ring.LastN(stderrTailLines), Err: ErrEmptyOutput}
	}

	metrics.RecordFFmpegExit("ok")
	logger.Debug().Dur("elapsed", time.Since(start)).Int64(log.FieldBytes, info.Size()).Msg("ffmpeg finished")
	return nil
}

func (f *FFmpeg) grace() time.Duration {
	if f.KillGrace <= 0 {
		return procgroup.DefaultGrace
	}
	return f.KillGrace
}
