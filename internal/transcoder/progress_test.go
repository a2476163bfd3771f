// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressWriter_ReportsMonotonicOutTime(t *testing.T) {
	var got []time.Duration
	w := newProgressWriter(func(d time.Duration) { got = append(got, d) })

	stream := "frame=1\nout_time_us=N/A\nprogress=continue\n" +
		"out_time_us=500000\nprogress=continue\n" +
		"out_time_us=250000\n" + // ffmpeg occasionally reports backwards
		"out_time_us=1500000\nprogress=end\n"

	// split in awkward places
	for i := 0; i < len(stream); i += 7 {
		end := i + 7
		if end > len(stream) {
			end = len(stream)
		}
		_, _ = w.Write([]byte(stream[i:end]))
	}

	assert.Equal(t, []time.Duration{500 * time.Millisecond, 1500 * time.Millisecond}, got)
}

func TestProgressWriter_NilCallback(t *testing.T) {
	w := newProgressWriter(nil)
	n, err := w.Write([]byte("out_time_us=100\n"))
	assert.NoError(t, err)
	assert.Equal(t, 16, n)
}
