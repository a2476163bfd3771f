// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/metrics"
	"github.com/ManuGH/vidmark/internal/transport"
	"github.com/google/renameio/v2"
)

const (
	DefaultTimeout          = 5 * time.Minute
	DefaultProgressInterval = time.Second
)

// Options tunes a Manager. Zero values select the defaults.
type Options struct {
	Timeout          time.Duration // per transfer
	ProgressInterval time.Duration // minimum gap between progress events
	MaxDownloadBytes int64         // 0 = unlimited
}

// Manager performs downloads and uploads through a transport.
type Manager struct {
	tr   transport.Transport
	opts Options
}

// NewManager returns a Manager for tr.
func NewManager(tr transport.Transport, opts Options) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &Manager{tr: tr, opts: opts}
}

// Download fetches ref into dest. The file appears at dest only when the
// whole payload arrived; on failure nothing is left behind.
func (m *Manager) Download(ctx context.Context, ref transport.MediaRef, dest string, onProgress func(Progress)) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()
	logger := log.WithContext(ctx, log.WithComponent("transfer"))
	start := time.Now()

	if m.opts.MaxDownloadBytes > 0 && ref.Size > m.opts.MaxDownloadBytes {
		return m.fail(OpDownload, ErrTooLarge, 0)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return m.fail(OpDownload, fmt.Errorf("prepare dir: %w", err), 0)
	}

	pending, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0o600))
	if err != nil {
		return m.fail(OpDownload, fmt.Errorf("create pending file: %w", err), 0)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending download")
		}
	}()

	rep := newProgressReporter(onProgress, ref.Size, m.opts.MaxDownloadBytes, m.opts.ProgressInterval)
	if err := m.tr.Download(ctx, ref, &countingWriter{w: pending, r: rep}); err != nil {
		return m.fail(OpDownload, classify(ctx, err), rep.bytes())
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return m.fail(OpDownload, fmt.Errorf("commit: %w", err), rep.bytes())
	}
	rep.finish()

	n := rep.bytes()
	metrics.RecordTransfer(string(OpDownload), "ok", n)
	logger.Debug().Str(log.FieldFileID, ref.FileID).Int64(log.FieldBytes, n).Dur("elapsed", time.Since(start)).Msg("download complete")
	return nil
}

// Upload sends the file at path to chat as a video.
func (m *Manager) Upload(ctx context.Context, chat transport.ChatID, path, caption string, onProgress func(Progress)) (transport.MessageRef, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()
	logger := log.WithContext(ctx, log.WithComponent("transfer"))
	start := time.Now()

	// #nosec G304 -- path is generated by the job executor
	f, err := os.Open(path)
	if err != nil {
		return transport.MessageRef{}, m.fail(OpUpload, err, 0)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return transport.MessageRef{}, m.fail(OpUpload, err, 0)
	}

	rep := newProgressReporter(onProgress, info.Size(), 0, m.opts.ProgressInterval)
	ref, err := m.tr.Upload(ctx, chat, transport.Upload{
		FileName: filepath.Base(path),
		Reader:   &countingReader{rd: f, r: rep},
		Size:     info.Size(),
		Caption:  caption,
	})
	if err != nil {
		return transport.MessageRef{}, m.fail(OpUpload, classify(ctx, err), rep.bytes())
	}
	rep.finish()

	metrics.RecordTransfer(string(OpUpload), "ok", info.Size())
	logger.Debug().Str(log.FieldPath, path).Int64(log.FieldBytes, info.Size()).Dur("elapsed", time.Since(start)).Msg("upload complete")
	return ref, nil
}

func (m *Manager) fail(op Op, err error, n int64) error {
	result := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		result = "timeout"
	}
	metrics.RecordTransfer(string(op), result, n)
	return &TransferError{Op: op, Err: err}
}

// classify prefers the context error so timeouts surface as such even when
// the transport reports a generic I/O failure.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
