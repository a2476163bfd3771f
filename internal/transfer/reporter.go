// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transfer

import (
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// progressReporter counts bytes and forwards at most one event per interval.
// Reported values never decrease.
type progressReporter struct {
	mu       sync.Mutex
	fn       func(Progress)
	total    int64
	n        int64
	reported int64
	limit    int64 // 0 = unlimited
	every    rate.Sometimes
}

func newProgressReporter(fn func(Progress), total, limit int64, interval time.Duration) *progressReporter {
	r := &progressReporter{
		fn:       fn,
		total:    total,
		limit:    limit,
		reported: -1,
	}
	if interval > 0 {
		r.every.Interval = interval
	} else {
		r.every.Every = 1
	}
	return r
}

func (r *progressReporter) add(n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.n += int64(n)
	if r.limit > 0 && r.n > r.limit {
		return ErrTooLarge
	}
	if r.fn == nil {
		return nil
	}
	r.every.Do(r.emitLocked)
	return nil
}

func (r *progressReporter) emitLocked() {
	if r.n <= r.reported {
		return
	}
	r.reported = r.n
	total := r.total
	if total > 0 && r.n > total {
		total = r.n
	}
	r.fn(Progress{Transferred: r.n, Total: total})
}

// finish delivers the final event, reporting completion even when the total
// was unknown or the platform's size hint was off.
func (r *progressReporter) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fn == nil || r.n == r.reported {
		return
	}
	r.reported = r.n
	r.fn(Progress{Transferred: r.n, Total: r.n})
}

func (r *progressReporter) bytes() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

type countingWriter struct {
	w io.Writer
	r *progressReporter
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		if lerr := c.r.add(n); lerr != nil {
			return n, lerr
		}
	}
	return n, err
}

type countingReader struct {
	rd io.Reader
	r  *progressReporter
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.rd.Read(p)
	if n > 0 {
		_ = c.r.add(n)
	}
	return n, err
}
