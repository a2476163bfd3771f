// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package status maintains one editable progress message per job.
// Delivery failures never surface to callers: a lost status edit must not
// fail the job it describes.
package status

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/metrics"
	"github.com/ManuGH/vidmark/internal/transport"
)

// Stage labels the phase a progress bar belongs to.
type Stage string

const (
	StageDownload Stage = "📥 Downloading..."
	StageProcess  Stage = "⚙️ Processing..."
	StageUpload   Stage = "📤 Uploading..."
)

// InitialText is shown until the first stage reports.
const InitialText = "Starting process..."

const barCells = 15

// Bar renders percent as a 15 cell bar followed by one decimal, for
// example "███████░░░░░░░░ 46.7%". percent is clamped to [0,100].
func Bar(percent float64) string {
	percent = clamp(percent)
	filled := int(math.Round(percent / 100 * barCells))
	return strings.Repeat("█", filled) + strings.Repeat("░", barCells-filled) + fmt.Sprintf(" %.1f%%", percent)
}

// Text is the full message body for stage at percent.
func Text(stage Stage, percent float64) string {
	return string(stage) + "\n" + Bar(percent)
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// Handle is one status message. The zero Handle and a nil *Handle are
// inert: every operation on them is a no-op.
type Handle struct {
	mu      sync.Mutex
	ref     transport.MessageRef
	text    string
	stage   Stage
	percent float64
	closed  bool
}

// Ref returns the underlying message reference.
func (h *Handle) Ref() transport.MessageRef {
	if h == nil {
		return transport.MessageRef{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ref
}

// Reporter edits status messages through a transport.
type Reporter struct {
	tr transport.Transport
}

// NewReporter returns a Reporter using tr.
func NewReporter(tr transport.Transport) *Reporter {
	return &Reporter{tr: tr}
}

// Open posts text to chat and returns its handle. If the message cannot be
// sent the returned handle is inert.
func (r *Reporter) Open(ctx context.Context, chat transport.ChatID, text string) *Handle {
	h := &Handle{text: text}
	ref, err := r.tr.Send(ctx, chat, transport.Message{Text: text})
	if err != nil {
		metrics.RecordStatusEdit("open", "error")
		logger := log.WithContext(ctx, log.WithComponent("status"))
		logger.Debug().Err(err).Msg("status message not sent")
		return h
	}
	metrics.RecordStatusEdit("open", "ok")
	h.ref = ref
	return h
}

// Update replaces the message text. Identical text is not re-sent.
func (r *Reporter) Update(ctx context.Context, h *Handle, text string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	r.editLocked(ctx, h, text)
}

// rank orders the stages of a job; unknown stages rank with download.
func (s Stage) rank() int {
	switch s {
	case StageProcess:
		return 1
	case StageUpload:
		return 2
	}
	return 0
}

// Progress renders stage at percent. Within one stage the shown percentage
// never decreases; a later stage starts a new bar and events for an earlier
// stage are dropped, so (stage, percent) never goes backwards over a job.
func (r *Reporter) Progress(ctx context.Context, h *Handle, stage Stage, percent float64) {
	if h == nil {
		return
	}
	percent = clamp(percent)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stage != "" && stage.rank() < h.stage.rank() {
		return
	}
	if stage == h.stage && percent < h.percent {
		percent = h.percent
	}
	h.stage = stage
	h.percent = percent
	r.editLocked(ctx, h, Text(stage, percent))
}

func (r *Reporter) editLocked(ctx context.Context, h *Handle, text string) {
	if h.closed || h.ref.IsZero() {
		return
	}
	if text == h.text {
		metrics.RecordStatusEdit("edit", "skipped")
		return
	}
	if err := r.tr.Edit(ctx, h.ref, text); err != nil {
		metrics.RecordStatusEdit("edit", "error")
		logger := log.WithContext(ctx, log.WithComponent("status"))
		logger.Debug().Err(err).Msg("status edit failed")
		return
	}
	metrics.RecordStatusEdit("edit", "ok")
	h.text = text
}

// Close deletes the status message. Later operations on h are no-ops.
func (r *Reporter) Close(ctx context.Context, h *Handle) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	if h.ref.IsZero() {
		return
	}
	if err := r.tr.Delete(ctx, h.ref); err != nil {
		metrics.RecordStatusEdit("delete", "error")
		logger := log.WithContext(ctx, log.WithComponent("status"))
		logger.Debug().Err(err).Msg("status delete failed")
		return
	}
	metrics.RecordStatusEdit("delete", "ok")
}
