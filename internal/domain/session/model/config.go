// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultMaxTextRunes bounds text watermarks when no limit is configured.
const DefaultMaxTextRunes = 200

// Configuration accumulates the watermark parameters for one job.
type Configuration struct {
	Kind     Kind     `json:"kind,omitempty"`
	Content  string   `json:"content,omitempty"`
	Position Position `json:"position,omitempty"`
	Size     Size     `json:"size,omitempty"`
	Opacity  Opacity  `json:"opacity,omitempty"`
}

// SetKind sets the watermark kind. Changing kind drops previously set content.
func (c *Configuration) SetKind(k Kind) error {
	if !k.Valid() {
		return invalid("kind", "unknown kind %q", k)
	}
	if c.Kind != k {
		c.Content = ""
	}
	c.Kind = k
	return nil
}

// SetText sets literal text content. The text is trimmed; empty text or text
// longer than maxRunes is rejected.
func (c *Configuration) SetText(text string, maxRunes int) error {
	if c.Kind != KindText {
		return invalid("content", "text content requires kind %q", KindText)
	}
	if maxRunes <= 0 {
		maxRunes = DefaultMaxTextRunes
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return invalid("content", "text is empty")
	}
	if !utf8.ValidString(text) {
		return invalid("content", "text is not valid UTF-8")
	}
	// drawtext renders composed glyphs; count them the same way
	text = norm.NFC.String(text)
	if n := utf8.RuneCountInString(text); n > maxRunes {
		return invalid("content", "text has %d characters, limit is %d", n, maxRunes)
	}
	c.Content = text
	return nil
}

// SetImage sets the local path of a downloaded watermark image.
func (c *Configuration) SetImage(path string) error {
	if c.Kind != KindImage {
		return invalid("content", "image content requires kind %q", KindImage)
	}
	if strings.TrimSpace(path) == "" {
		return invalid("content", "image path is empty")
	}
	c.Content = path
	return nil
}

// SetPosition sets the watermark position.
func (c *Configuration) SetPosition(p Position) error {
	if !p.Valid() {
		return invalid("position", "unknown position %q", p)
	}
	c.Position = p
	return nil
}

// SetSize sets the watermark size.
func (c *Configuration) SetSize(s Size) error {
	if !s.Valid() {
		return invalid("size", "unknown size %q", s)
	}
	c.Size = s
	return nil
}

// SetOpacity sets the watermark opacity.
func (c *Configuration) SetOpacity(o Opacity) error {
	if !o.Valid() {
		return invalid("opacity", "opacity %s outside (0,1]", o)
	}
	c.Opacity = o
	return nil
}

// Validate returns the first missing or invalid field as a *ValidationError.
func (c Configuration) Validate() error {
	switch {
	case !c.Kind.Valid():
		return invalid("kind", "not set")
	case c.Content == "":
		return invalid("content", "not set")
	case !c.Position.Valid():
		return invalid("position", "not set")
	case !c.Size.Valid():
		return invalid("size", "not set")
	case !c.Opacity.Valid():
		return invalid("opacity", "not set")
	}
	return nil
}

// Complete reports whether every field is set and valid.
func (c Configuration) Complete() bool {
	return c.Validate() == nil
}
