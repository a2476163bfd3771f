// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package transcoder applies a compiled filter graph to a video file by
// running an external ffmpeg process.
package transcoder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrExecution classifies every failed transform.
	ErrExecution = errors.New("transcoder execution failed")

	// ErrEmptyOutput is returned when ffmpeg exits 0 without producing data.
	ErrEmptyOutput = errors.New("transcoder produced no output")
)

// Transcoder renders expr onto input and writes output.
// onProgress receives the media time written so far; it may be nil.
type Transcoder interface {
	Transform(ctx context.Context, input, expr, output string, onProgress func(time.Duration)) error
}

// ExecutionError describes a failed ffmpeg run. ExitCode is -1 when the
// process never started or was stopped by a signal.
type ExecutionError struct {
	ExitCode int
	Stderr   []string // tail of stderr, oldest first
	Err      error
}

func (e *ExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ffmpeg failed (exit %d)", e.ExitCode)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if n := len(e.Stderr); n > 0 {
		b.WriteString(": ")
		b.WriteString(e.Stderr[n-1])
	}
	return b.String()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Is reports ErrExecution for every ExecutionError.
func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

// Func adapts a function to the Transcoder interface.
type Func func(ctx context.Context, input, expr, output string, onProgress func(time.Duration)) error

// Transform calls f.
func (f Func) Transform(ctx context.Context, input, expr, output string, onProgress func(time.Duration)) error {
	return f(ctx, input, expr, output, onProgress)
}
