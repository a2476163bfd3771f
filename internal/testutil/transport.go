// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package testutil holds test doubles shared across packages.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/ManuGH/vidmark/internal/transport"
)

// ErrUnknownFile is returned by FakeTransport.Download for unregistered ids.
var ErrUnknownFile = errors.New("unknown file id")

// SentMessage records one Send call.
type SentMessage struct {
	Ref transport.MessageRef
	Msg transport.Message
}

// EditRecord records one Edit call.
type EditRecord struct {
	Ref  transport.MessageRef
	Text string
}

// UploadRecord records one Upload call with the payload read from it.
type UploadRecord struct {
	Ref      transport.MessageRef
	FileName string
	Caption  string
	Data     []byte
}

// FakeTransport is an in-memory transport.Transport. Error fields, when
// set, are returned by the matching operation. All methods are safe for
// concurrent use.
type FakeTransport struct {
	mu     sync.Mutex
	nextID int

	files    map[string][]byte
	sent     []SentMessage
	edits    []EditRecord
	deleted  []transport.MessageRef
	uploads  []UploadRecord
	answered []string

	SendErr     error
	EditErr     error
	DeleteErr   error
	DownloadErr error
	UploadErr   error

	// ChunkSize splits downloads into writes of this size (default 4 KiB).
	ChunkSize int
	// BeforeDownload runs before every download; a non-nil error aborts it.
	BeforeDownload func(ctx context.Context) error
}

// NewFakeTransport returns an empty FakeTransport.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{files: make(map[string][]byte)}
}

// AddFile registers a downloadable payload.
func (f *FakeTransport) AddFile(fileID string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[fileID] = data
}

func (f *FakeTransport) ref(chat transport.ChatID) transport.MessageRef {
	f.nextID++
	return transport.MessageRef{ChatID: chat, MessageID: strconv.Itoa(f.nextID)}
}

func (f *FakeTransport) Send(_ context.Context, chat transport.ChatID, msg transport.Message) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return transport.MessageRef{}, f.SendErr
	}
	ref := f.ref(chat)
	f.sent = append(f.sent, SentMessage{Ref: ref, Msg: msg})
	return ref, nil
}

func (f *FakeTransport) Edit(_ context.Context, ref transport.MessageRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EditErr != nil {
		return f.EditErr
	}
	f.edits = append(f.edits, EditRecord{Ref: ref, Text: text})
	return nil
}

func (f *FakeTransport) Delete(_ context.Context, ref transport.MessageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

func (f *FakeTransport) Download(ctx context.Context, media transport.MediaRef, w io.Writer) error {
	if f.BeforeDownload != nil {
		if err := f.BeforeDownload(ctx); err != nil {
			return err
		}
	}
	f.mu.Lock()
	data, ok := f.files[media.FileID]
	dlErr := f.DownloadErr
	chunk := f.ChunkSize
	f.mu.Unlock()

	if dlErr != nil {
		return dlErr
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFile, media.FileID)
	}
	if chunk <= 0 {
		chunk = 4096
	}
	for off := 0; off < len(data); off += chunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		if _, err := w.Write(data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeTransport) Upload(_ context.Context, chat transport.ChatID, up transport.Upload) (transport.MessageRef, error) {
	var buf bytes.Buffer
	if up.Reader != nil {
		if _, err := io.Copy(&buf, up.Reader); err != nil {
			return transport.MessageRef{}, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UploadErr != nil {
		return transport.MessageRef{}, f.UploadErr
	}
	ref := f.ref(chat)
	f.uploads = append(f.uploads, UploadRecord{Ref: ref, FileName: up.FileName, Caption: up.Caption, Data: buf.Bytes()})
	return ref, nil
}

func (f *FakeTransport) AnswerCallback(_ context.Context, callbackID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, callbackID)
	return nil
}

// Sent returns a copy of all sent messages.
func (f *FakeTransport) Sent() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage(nil), f.sent...)
}

// SentTexts returns the text of every sent message in order.
func (f *FakeTransport) SentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.Msg.Text)
	}
	return out
}

// LastSent returns the most recent message, or false if none was sent.
func (f *FakeTransport) LastSent() (SentMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return SentMessage{}, false
	}
	return f.sent[len(f.sent)-1], true
}

// Edits returns a copy of all edits.
func (f *FakeTransport) Edits() []EditRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EditRecord(nil), f.edits...)
}

// Deleted returns a copy of all deleted message refs.
func (f *FakeTransport) Deleted() []transport.MessageRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.MessageRef(nil), f.deleted...)
}

// Uploads returns a copy of all uploads.
func (f *FakeTransport) Uploads() []UploadRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]UploadRecord(nil), f.uploads...)
}

// Answered returns the ids of all answered callbacks.
func (f *FakeTransport) Answered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.answered...)
}

var _ transport.Transport = (*FakeTransport)(nil)
