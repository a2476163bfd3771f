// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package filtergraph

import (
	"errors"
	"strconv"
)

// ArgsOptions selects the encoder settings for the watermarked output.
type ArgsOptions struct {
	VideoCodec string // default libx264
	Preset     string // default veryfast
	CRF        int    // 0 keeps the encoder default
	Threads    int    // 0 lets ffmpeg decide
}

const (
	defaultVideoCodec = "libx264"
	defaultPreset     = "veryfast"
)

// Args builds the ffmpeg argument vector that applies expr to input and
// writes output. Paths are passed as separate arguments and never through a
// shell. Audio is copied when present. Machine readable progress goes to
// stdout as key=value lines.
func Args(input, expr, output string, opts ArgsOptions) ([]string, error) {
	if input == "" {
		return nil, errors.New("missing input path")
	}
	if output == "" {
		return nil, errors.New("missing output path")
	}
	if expr == "" {
		return nil, errors.New("missing filter graph")
	}

	codec := opts.VideoCodec
	if codec == "" {
		codec = defaultVideoCodec
	}
	preset := opts.Preset
	if preset == "" {
		preset = defaultPreset
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error", // stderr is captured for diagnostics
		"-y",
		"-i", input,
		"-filter_complex", expr,
		"-map", "[" + OutputLabel + "]",
		"-map", "0:a?",
		"-c:v", codec,
		"-preset", preset,
	}
	if opts.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(opts.CRF))
	}
	if opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(opts.Threads))
	}
	args = append(args,
		"-c:a", "copy",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		output,
	)
	return args, nil
}
