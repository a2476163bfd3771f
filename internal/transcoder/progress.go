// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcoder

import (
	"bytes"
	"strconv"
	"time"
)

// progressWriter parses the key=value stream ffmpeg writes with
// "-progress pipe:1" and reports out_time_us as a non-decreasing duration.
type progressWriter struct {
	fn      func(time.Duration)
	last    time.Duration
	partial []byte
}

func newProgressWriter(fn func(time.Duration)) *progressWriter {
	return &progressWriter{fn: fn, last: -1}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			if len(w.partial)+len(data) <= maxLineBytes {
				w.partial = append(w.partial, data...)
			}
			break
		}
		line := data[:i]
		if len(w.partial) > 0 {
			line = append(w.partial, line...)
		}
		w.line(bytes.TrimSpace(line))
		w.partial = w.partial[:0]
		data = data[i+1:]
	}
	return len(p), nil
}

func (w *progressWriter) line(line []byte) {
	key, value, ok := bytes.Cut(line, []byte("="))
	if !ok || string(key) != "out_time_us" {
		return
	}
	us, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil || us < 0 {
		return // "N/A" before the first frame
	}
	d := time.Duration(us) * time.Microsecond
	if d <= w.last {
		return
	}
	w.last = d
	if w.fn != nil {
		w.fn(d)
	}
}
