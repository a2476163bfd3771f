// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transfer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/vidmark/internal/testutil"
	"github.com/ManuGH/vidmark/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressLog struct {
	mu     sync.Mutex
	events []Progress
}

func (l *progressLog) record(p Progress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, p)
}

func (l *progressLog) all() []Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Progress(nil), l.events...)
}

func assertMonotonic(t *testing.T, events []Progress) {
	t.Helper()
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Transferred, events[i-1].Transferred, "event %d", i)
		assert.GreaterOrEqual(t, events[i].Percent(), events[i-1].Percent(), "event %d", i)
	}
}

func TestDownload_WritesFileAndReportsFinal(t *testing.T) {
	tr := testutil.NewFakeTransport()
	payload := bytes.Repeat([]byte("v"), 10_000)
	tr.AddFile("vid1", payload)
	tr.ChunkSize = 1000

	dest := filepath.Join(t.TempDir(), "input_42_1.mp4")
	var log progressLog
	m := NewManager(tr, Options{ProgressInterval: time.Hour})

	err := m.Download(context.Background(), transport.MediaRef{FileID: "vid1", Size: int64(len(payload))}, dest, log.record)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	events := log.all()
	// throttled: the first write and the forced final event only
	require.Len(t, events, 2)
	assert.Equal(t, int64(1000), events[0].Transferred)
	assert.Equal(t, Progress{Transferred: 10_000, Total: 10_000}, events[1])
	assert.Equal(t, 100.0, events[1].Percent())
}

func TestDownload_UnthrottledIsMonotonic(t *testing.T) {
	tr := testutil.NewFakeTransport()
	tr.AddFile("vid1", bytes.Repeat([]byte("v"), 5000))
	tr.ChunkSize = 512

	var log progressLog
	m := &Manager{tr: tr, opts: Options{Timeout: time.Minute}} // zero interval: every write
	err := m.Download(context.Background(), transport.MediaRef{FileID: "vid1", Size: 4000}, filepath.Join(t.TempDir(), "x"), log.record)
	require.NoError(t, err)

	events := log.all()
	require.NotEmpty(t, events)
	assertMonotonic(t, events)
	for _, e := range events {
		assert.LessOrEqual(t, e.Percent(), 100.0)
	}
	assert.Equal(t, int64(5000), events[len(events)-1].Transferred)
}

func TestDownload_FailureLeavesNoFile(t *testing.T) {
	tr := testutil.NewFakeTransport()
	tr.DownloadErr = errors.New("connection reset")
	dest := filepath.Join(t.TempDir(), "input.mp4")

	err := NewManager(tr, Options{}).Download(context.Background(), transport.MediaRef{FileID: "vid1"}, dest, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransfer)

	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, OpDownload, te.Op)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	entries, _ := os.ReadDir(filepath.Dir(dest))
	assert.Empty(t, entries, "pending temp file must be cleaned up")
}

func TestDownload_Timeout(t *testing.T) {
	tr := testutil.NewFakeTransport()
	tr.AddFile("vid1", []byte("data"))
	tr.BeforeDownload = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	err := NewManager(tr, Options{Timeout: 20 * time.Millisecond}).
		Download(context.Background(), transport.MediaRef{FileID: "vid1"}, filepath.Join(t.TempDir(), "x"), nil)
	assert.ErrorIs(t, err, ErrTransfer)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDownload_SizeLimit(t *testing.T) {
	tr := testutil.NewFakeTransport()
	tr.AddFile("big", bytes.Repeat([]byte("v"), 2048))
	m := NewManager(tr, Options{MaxDownloadBytes: 1024})
	dest := filepath.Join(t.TempDir(), "x")

	// declared size over the limit
	err := m.Download(context.Background(), transport.MediaRef{FileID: "big", Size: 2048}, dest, nil)
	assert.ErrorIs(t, err, ErrTooLarge)

	// undeclared size, stream exceeds the limit
	tr.ChunkSize = 256
	err = m.Download(context.Background(), transport.MediaRef{FileID: "big"}, dest, nil)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUpload_SendsFileWithCaption(t *testing.T) {
	tr := testutil.NewFakeTransport()
	path := filepath.Join(t.TempDir(), "output_42_1.mp4")
	require.NoError(t, os.WriteFile(path, []byte("watermarked"), 0o600))

	var log progressLog
	ref, err := NewManager(tr, Options{}).Upload(context.Background(), "42", path, "Here is your video", log.record)
	require.NoError(t, err)
	assert.False(t, ref.IsZero())

	ups := tr.Uploads()
	require.Len(t, ups, 1)
	assert.Equal(t, "output_42_1.mp4", ups[0].FileName)
	assert.Equal(t, "Here is your video", ups[0].Caption)
	assert.Equal(t, []byte("watermarked"), ups[0].Data)

	events := log.all()
	require.NotEmpty(t, events)
	assert.Equal(t, 100.0, events[len(events)-1].Percent())
}

func TestUpload_Errors(t *testing.T) {
	tr := testutil.NewFakeTransport()
	m := NewManager(tr, Options{})

	_, err := m.Upload(context.Background(), "42", filepath.Join(t.TempDir(), "missing.mp4"), "", nil)
	assert.ErrorIs(t, err, ErrTransfer)

	path := filepath.Join(t.TempDir(), "out.mp4")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	tr.UploadErr = errors.New("413 request entity too large")
	_, err = m.Upload(context.Background(), "42", path, "", nil)
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, OpUpload, te.Op)
}

func TestProgress_Percent(t *testing.T) {
	assert.Equal(t, 0.0, Progress{}.Percent())
	assert.Equal(t, 0.0, Progress{Transferred: 10}.Percent())
	assert.Equal(t, 50.0, Progress{Transferred: 5, Total: 10}.Percent())
	assert.Equal(t, 100.0, Progress{Transferred: 20, Total: 10}.Percent())
}
