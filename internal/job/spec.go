// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
	"github.com/ManuGH/vidmark/internal/transport"
	"github.com/google/uuid"
)

// Spec is an immutable description of one watermark job. The configuration
// is a copy: later session edits cannot reach a running job.
type Spec struct {
	ID         string
	UserID     string
	ChatID     transport.ChatID
	Source     transport.MediaRef
	Config     model.Configuration
	InputPath  string
	OutputPath string
	CreatedAt  time.Time
}

// NewSpec assigns an id and temp paths under workDir.
func NewSpec(workDir, userID string, chat transport.ChatID, src transport.MediaRef, cfg model.Configuration, now time.Time) Spec {
	stamp := now.UnixNano()
	return Spec{
		ID:         uuid.NewString(),
		UserID:     userID,
		ChatID:     chat,
		Source:     src,
		Config:     cfg,
		InputPath:  filepath.Join(workDir, fmt.Sprintf("input_%s_%d.mp4", userID, stamp)),
		OutputPath: filepath.Join(workDir, fmt.Sprintf("output_%s_%d.mp4", userID, stamp)),
		CreatedAt:  now,
	}
}

// tempFiles lists every file the job owns and must remove.
func (s Spec) tempFiles() []string {
	files := []string{s.InputPath, s.OutputPath}
	if s.Config.Kind == model.KindImage && s.Config.Content != "" {
		files = append(files, s.Config.Content)
	}
	return files
}

// Outcome is how a job ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCanceled  Outcome = "canceled"
)

// Result reports a finished job.
type Result struct {
	JobID    string
	Outcome  Outcome
	Err      error
	Duration time.Duration
}
