// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package transport defines the messaging boundary the bot core talks to.
// Adapters (see transport/telegram) translate a concrete platform into these
// types; the core never sees platform payloads.
package transport

import (
	"context"
	"io"
	"strings"
)

// ChatID identifies a conversation on the messaging platform.
type ChatID string

// MessageRef points at a message previously sent or received.
type MessageRef struct {
	ChatID    ChatID `json:"chat_id"`
	MessageID string `json:"message_id"`
}

// IsZero reports whether the reference points nowhere.
func (r MessageRef) IsZero() bool {
	return r.MessageID == ""
}

// MediaKind classifies attached media.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaOther    MediaKind = "other"
)

// MediaRef is a downloadable attachment.
type MediaRef struct {
	Kind     MediaKind `json:"kind"`
	FileID   string    `json:"file_id"`
	FileName string    `json:"file_name,omitempty"`
	MimeType string    `json:"mime_type,omitempty"`
	Size     int64     `json:"size,omitempty"`
	Duration int       `json:"duration,omitempty"` // seconds, when the platform reports it
}

// IsVideo reports whether the declared media type is a video.
func (m MediaRef) IsVideo() bool {
	return strings.HasPrefix(strings.ToLower(m.MimeType), "video/")
}

// IsImage reports whether the attachment is a photo or an image document.
func (m MediaRef) IsImage() bool {
	if m.Kind == MediaPhoto {
		return true
	}
	return strings.HasPrefix(strings.ToLower(m.MimeType), "image/")
}

// Button is an inline button. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Message is an outbound message.
type Message struct {
	Text    string
	Buttons [][]Button
}

// Upload describes a file to send as a new message.
type Upload struct {
	FileName string
	Reader   io.Reader
	Size     int64
	Caption  string
}

// Inbound types

// IncomingMessage is a user message.
type IncomingMessage struct {
	ID    string
	Text  string
	Media *MediaRef
}

// Callback is a button press.
type Callback struct {
	ID        string
	Data      string
	MessageID string
}

// Update is a single inbound event.
type Update struct {
	ID        string
	UserID    string
	ChatID    ChatID
	Username  string
	FirstName string
	Message   *IncomingMessage
	Callback  *Callback
}

// Transport is the set of outbound operations the core requires.
type Transport interface {
	Send(ctx context.Context, chat ChatID, msg Message) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, text string) error
	Delete(ctx context.Context, ref MessageRef) error
	Download(ctx context.Context, media MediaRef, w io.Writer) error
	Upload(ctx context.Context, chat ChatID, up Upload) (MessageRef, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Source yields inbound updates until ctx is cancelled.
type Source interface {
	Updates(ctx context.Context) <-chan Update
}
