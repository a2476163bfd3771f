// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcoder

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineRing(t *testing.T) {
	r := NewLineRing(3)

	_, _ = fmt.Fprintf(r, "line1\n")
	_, _ = fmt.Fprintf(r, "line2\n")
	assert.Equal(t, []string{"line1", "line2"}, r.LastN(10))

	_, _ = fmt.Fprintf(r, "line3\n")
	assert.Equal(t, []string{"line1", "line2", "line3"}, r.LastN(10))

	// wrap
	_, _ = fmt.Fprintf(r, "line4\n")
	assert.Equal(t, []string{"line2", "line3", "line4"}, r.LastN(10))
	assert.Equal(t, []string{"line3", "line4"}, r.LastN(2))
}

func TestLineRing_PartialWrites(t *testing.T) {
	r := NewLineRing(5)
	_, _ = r.Write([]byte("fo"))
	_, _ = r.Write([]byte("o\nba"))
	assert.Equal(t, []string{"foo", "ba"}, r.LastN(10))

	_, _ = r.Write([]byte("r\r\n\n"))
	assert.Equal(t, []string{"foo", "bar"}, r.LastN(10))
}

func TestLineRing_CapsLongLines(t *testing.T) {
	r := NewLineRing(2)
	_, _ = r.Write([]byte(strings.Repeat("x", 3*maxLineBytes) + "\n"))
	got := r.LastN(1)
	assert.Len(t, got, 1)
	assert.Len(t, got[0], maxLineBytes)
}
