// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package filtergraph compiles a watermark configuration into an ffmpeg
// filter graph. Compile is pure: the same input always yields the same bytes.
package filtergraph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
)

// ErrCompile classifies configurations that yield no valid graph.
var ErrCompile = errors.New("filter graph compilation failed")

// OutputLabel is the pad carrying the watermarked video.
const OutputLabel = "vout"

const (
	edgeMargin   = 10
	textColor    = "white"
	textBoxColor = "black@0.5"
)

// Options carries operator-level styling.
type Options struct {
	FontFile string // optional TrueType font for text watermarks
}

// sizeSpec maps a size to its overlay scale factor and text font size.
type sizeSpec struct {
	Scale    string
	FontSize int
}

var sizes = map[model.Size]sizeSpec{
	model.SizeSmall:  {Scale: "0.1", FontSize: 16},
	model.SizeMedium: {Scale: "0.2", FontSize: 32},
	model.SizeLarge:  {Scale: "0.4", FontSize: 64},
}

// placement holds x/y expressions in terms of the frame (fw, fh) and the
// watermark (ww, wh) dimension variables of the target filter.
type placement struct {
	X, Y string
}

type dims struct {
	fw, fh, ww, wh string
}

var (
	// overlay: W/H main frame, w/h overlay
	overlayDims = dims{fw: "W", fh: "H", ww: "w", wh: "h"}
	// drawtext: w/h main frame, tw/th rendered text
	textDims = dims{fw: "w", fh: "h", ww: "tw", wh: "th"}
)

func place(p model.Position, d dims) (placement, bool) {
	m := strconv.Itoa(edgeMargin)
	switch p {
	case model.PositionTopLeft:
		return placement{X: m, Y: m}, true
	case model.PositionTopRight:
		return placement{X: d.fw + "-" + d.ww + "-" + m, Y: m}, true
	case model.PositionBottomLeft:
		return placement{X: m, Y: d.fh + "-" + d.wh + "-" + m}, true
	case model.PositionBottomRight:
		return placement{X: d.fw + "-" + d.ww + "-" + m, Y: d.fh + "-" + d.wh + "-" + m}, true
	case model.PositionCenter:
		return placement{X: "(" + d.fw + "-" + d.ww + ")/2", Y: "(" + d.fh + "-" + d.wh + ")/2"}, true
	case model.PositionMotion:
		// bounces across the frame as a function of elapsed time t
		return placement{
			X: "mod(t*100," + d.fw + "-" + d.ww + ")",
			Y: "mod(t*50," + d.fh + "-" + d.wh + ")",
		}, true
	default:
		return placement{}, false
	}
}

// Compile returns the filter graph for cfg. The graph reads input pad [0:v]
// and writes [vout].
func Compile(cfg model.Configuration, opts Options) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompile, err)
	}
	size, ok := sizes[cfg.Size]
	if !ok {
		return "", fmt.Errorf("%w: no size mapping for %q", ErrCompile, cfg.Size)
	}

	switch cfg.Kind {
	case model.KindImage:
		pos, ok := place(cfg.Position, overlayDims)
		if !ok {
			return "", fmt.Errorf("%w: no position mapping for %q", ErrCompile, cfg.Position)
		}
		return compileImage(cfg, size, pos), nil
	case model.KindText:
		pos, ok := place(cfg.Position, textDims)
		if !ok {
			return "", fmt.Errorf("%w: no position mapping for %q", ErrCompile, cfg.Position)
		}
		text := SanitizeText(cfg.Content)
		if text == "" {
			return "", fmt.Errorf("%w: text is empty after sanitizing", ErrCompile)
		}
		return compileText(text, cfg.Opacity, size, pos, opts), nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrCompile, cfg.Kind)
	}
}

func compileImage(cfg model.Configuration, size sizeSpec, pos placement) string {
	var b strings.Builder
	b.WriteString("movie=filename=")
	b.WriteString(EscapeLiteral(cfg.Content))
	b.WriteString(",scale=iw*")
	b.WriteString(size.Scale)
	b.WriteString(":-1,format=rgba,colorchannelmixer=aa=")
	b.WriteString(cfg.Opacity.String())
	b.WriteString("[wm];[0:v][wm]overlay=x=")
	b.WriteString(escapeExpr(pos.X))
	b.WriteString(":y=")
	b.WriteString(escapeExpr(pos.Y))
	b.WriteString("[" + OutputLabel + "]")
	return b.String()
}

func compileText(text string, opacity model.Opacity, size sizeSpec, pos placement, opts Options) string {
	var b strings.Builder
	b.WriteString("[0:v]drawtext=text=")
	b.WriteString(EscapeLiteral(text))
	b.WriteString(":expansion=none")
	if opts.FontFile != "" {
		b.WriteString(":fontfile=")
		b.WriteString(EscapeLiteral(opts.FontFile))
	}
	b.WriteString(":x=")
	b.WriteString(escapeExpr(pos.X))
	b.WriteString(":y=")
	b.WriteString(escapeExpr(pos.Y))
	b.WriteString(":fontsize=")
	b.WriteString(strconv.Itoa(size.FontSize))
	b.WriteString(":fontcolor=" + textColor)
	b.WriteString(":alpha=")
	b.WriteString(opacity.String())
	b.WriteString(":box=1:boxcolor=" + textBoxColor)
	b.WriteString("[" + OutputLabel + "]")
	return b.String()
}
