// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguration_BuildText(t *testing.T) {
	var c Configuration
	assert.False(t, c.Complete())

	require.NoError(t, c.SetKind(KindText))
	require.NoError(t, c.SetText("  hello world  ", 0))
	require.NoError(t, c.SetPosition(PositionBottomRight))
	require.NoError(t, c.SetSize(SizeMedium))
	require.NoError(t, c.SetOpacity(Opacity50))

	assert.True(t, c.Complete())
	assert.Equal(t, "hello world", c.Content)
}

func TestConfiguration_SetTextComposesBeforeCounting(t *testing.T) {
	c := Configuration{Kind: KindText}
	// "e" + combining acute is two runes, one glyph
	require.NoError(t, c.SetText("cafe\u0301", 4))
	assert.Equal(t, "caf\u00e9", c.Content)

	assert.Error(t, c.SetText("cafe\u0301s", 4))
}

func TestConfiguration_ValidateReportsFirstMissingField(t *testing.T) {
	c := Configuration{Kind: KindImage, Content: "/tmp/wm.jpg", Position: PositionCenter}
	err := c.Validate()
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "size", ve.Field)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfiguration_SetTextRejects(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		text string
	}{
		{"wrong kind", KindImage, "hi"},
		{"blank", KindText, "   \n\t "},
		{"too long", KindText, strings.Repeat("x", 11)},
		{"invalid utf8", KindText, string([]byte{0xff, 0xfe})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Configuration{Kind: tt.kind}
			err := c.SetText(tt.text, 10)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, c.Content)
		})
	}
}

func TestConfiguration_SetKindDropsContentOnChange(t *testing.T) {
	c := Configuration{}
	require.NoError(t, c.SetKind(KindText))
	require.NoError(t, c.SetText("abc", 0))
	require.NoError(t, c.SetKind(KindText))
	assert.Equal(t, "abc", c.Content)

	require.NoError(t, c.SetKind(KindImage))
	assert.Empty(t, c.Content)
}

func TestConfiguration_RejectsUnknownEnums(t *testing.T) {
	var c Configuration
	assert.ErrorIs(t, c.SetKind("video"), ErrValidation)
	assert.ErrorIs(t, c.SetPosition("middle"), ErrValidation)
	assert.ErrorIs(t, c.SetSize("huge"), ErrValidation)
	assert.ErrorIs(t, c.SetOpacity(0), ErrValidation)
	assert.ErrorIs(t, c.SetOpacity(1.5), ErrValidation)
	assert.Equal(t, Configuration{}, c)
}

func TestOpacity_Formatting(t *testing.T) {
	assert.Equal(t, "0.25", Opacity25.String())
	assert.Equal(t, "0.5", Opacity50.String())
	assert.Equal(t, "1", Opacity100.String())
	assert.Equal(t, "75%", Opacity75.Label())
	assert.Equal(t, "100%", Opacity100.Label())
}
