// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaRef_Classification(t *testing.T) {
	tests := []struct {
		name    string
		ref     MediaRef
		isVideo bool
		isImage bool
	}{
		{"video doc", MediaRef{Kind: MediaDocument, MimeType: "video/mp4"}, true, false},
		{"upper-case mime", MediaRef{Kind: MediaDocument, MimeType: "VIDEO/quicktime"}, true, false},
		{"photo", MediaRef{Kind: MediaPhoto}, false, true},
		{"image doc", MediaRef{Kind: MediaDocument, MimeType: "image/png"}, false, true},
		{"pdf", MediaRef{Kind: MediaDocument, MimeType: "application/pdf"}, false, false},
		{"no mime", MediaRef{Kind: MediaVideo}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isVideo, tt.ref.IsVideo())
			assert.Equal(t, tt.isImage, tt.ref.IsImage())
		})
	}
}

func TestMessageRef_IsZero(t *testing.T) {
	assert.True(t, MessageRef{}.IsZero())
	assert.False(t, MessageRef{ChatID: "1", MessageID: "2"}.IsZero())
}
