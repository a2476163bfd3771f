// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcoder

import (
	"bytes"
	"sync"
)

// maxLineBytes caps a single captured line; ffmpeg can emit very long
// lines when it dumps filter graphs.
const maxLineBytes = 1024

// LineRing is a thread-safe ring buffer holding the last N lines written to it.
// Partial lines are buffered until their newline arrives.
type LineRing struct {
	mu      sync.Mutex
	lines   []string
	head    int
	count   int
	partial []byte
}

// NewLineRing creates a LineRing with the specified capacity.
func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 50
	}
	return &LineRing{lines: make([]string, capacity)}
}

// Write implements io.Writer.
func (r *LineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			r.partial = appendCapped(r.partial, data)
			break
		}
		r.partial = appendCapped(r.partial, data[:i])
		r.push()
		data = data[i+1:]
	}
	return len(p), nil
}

func appendCapped(dst, src []byte) []byte {
	if room := maxLineBytes - len(dst); room < len(src) {
		if room <= 0 {
			return dst
		}
		src = src[:room]
	}
	return append(dst, src...)
}

func (r *LineRing) push() {
	line := string(bytes.TrimRight(r.partial, "\r"))
	r.partial = r.partial[:0]
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// LastN returns up to n of the most recent lines in chronological order,
// including a trailing unterminated line.
func (r *LineRing) LastN(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, r.count+1)
	start := (r.head - r.count + len(r.lines)) % len(r.lines)
	for i := 0; i < r.count; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	if len(r.partial) > 0 {
		out = append(out, string(r.partial))
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
