// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"time"

	"github.com/ManuGH/vidmark/internal/transport"
)

// Session is the per-user conversation record.
type Session struct {
	UserID      string              `json:"user_id"`
	ChatID      transport.ChatID    `json:"chat_id,omitempty"`
	Step        Step                `json:"step"`
	Source      *transport.MediaRef `json:"source,omitempty"`
	Config      Configuration       `json:"config"`
	ActiveJobID string              `json:"active_job_id,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewSession returns a session in the initial step.
func NewSession(userID string) *Session {
	return &Session{UserID: userID, Step: StepIdle}
}

// Reset returns the session to Idle, dropping the source and configuration.
// Identity (user and chat) is kept.
func (s *Session) Reset() {
	s.Step = StepIdle
	s.Source = nil
	s.Config = Configuration{}
	s.ActiveJobID = ""
}

// HasActiveJob reports whether a job is running for this session.
func (s *Session) HasActiveJob() bool {
	return s.ActiveJobID != ""
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Source != nil {
		src := *s.Source
		out.Source = &src
	}
	return &out
}
