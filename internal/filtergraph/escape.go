// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package filtergraph

import (
	"strings"
	"unicode"
)

// ffmpeg unescapes a filter graph twice: once when splitting the graph into
// filters (terminators "[],;") and once when splitting a filter's arguments
// into key=value options (terminators ":="). Both passes honour backslash
// and single-quote escaping, so a literal must be escaped for the option
// pass first and then for the graph pass.

const (
	optionSpecial = `\':`
	graphSpecial  = `\'[],;`
)

func escapeWith(s, special string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EscapeLiteral makes s safe as an option value inside a filter graph.
// The result always decodes back to exactly s.
func EscapeLiteral(s string) string {
	return escapeWith(escapeWith(s, optionSpecial), graphSpecial)
}

// escapeExpr protects an expression that must not be split at commas when
// the graph is parsed. Expressions never contain ':' or quotes.
func escapeExpr(s string) string {
	return escapeWith(s, graphSpecial)
}

// SanitizeText replaces control characters (newlines, tabs, escapes) with a
// space and collapses runs of whitespace. drawtext renders the result on a
// single line.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			if !space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}
