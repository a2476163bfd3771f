// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"testing"

	"github.com/ManuGH/vidmark/internal/transport"
	"github.com/stretchr/testify/assert"
)

func TestSession_ResetKeepsIdentity(t *testing.T) {
	s := NewSession("42")
	s.ChatID = "chat-42"
	s.Step = StepAwaitingSize
	s.Source = &transport.MediaRef{FileID: "f1", MimeType: "video/mp4"}
	s.Config = Configuration{Kind: KindText, Content: "x"}
	s.ActiveJobID = "job"

	s.Reset()

	assert.Equal(t, "42", s.UserID)
	assert.Equal(t, transport.ChatID("chat-42"), s.ChatID)
	assert.Equal(t, StepIdle, s.Step)
	assert.Nil(t, s.Source)
	assert.Equal(t, Configuration{}, s.Config)
	assert.False(t, s.HasActiveJob())
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := NewSession("1")
	s.Source = &transport.MediaRef{FileID: "orig"}

	c := s.Clone()
	c.Source.FileID = "changed"
	c.Step = StepProcessing

	assert.Equal(t, "orig", s.Source.FileID)
	assert.Equal(t, StepIdle, s.Step)
	assert.Nil(t, (*Session)(nil).Clone())
}

func TestStep_Classification(t *testing.T) {
	assert.True(t, StepAwaitingOpacity.Configuring())
	assert.False(t, StepIdle.Configuring())
	assert.False(t, StepProcessing.Configuring())
	assert.True(t, StepProcessing.Valid())
	assert.False(t, Step("bogus").Valid())
}
