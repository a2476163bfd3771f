// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ManuGH/vidmark/internal/metrics"
	"github.com/ManuGH/vidmark/internal/transport"
)

type sendMessageParams struct {
	ChatID      string          `json:"chat_id"`
	Text        string          `json:"text"`
	ReplyMarkup *inlineKeyboard `json:"reply_markup,omitempty"`
}

type editMessageParams struct {
	ChatID    string `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

type deleteMessageParams struct {
	ChatID    string `json:"chat_id"`
	MessageID int64  `json:"message_id"`
}

type answerCallbackParams struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

// Send posts a text message with an optional inline keyboard.
func (c *Client) Send(ctx context.Context, chat transport.ChatID, msg transport.Message) (transport.MessageRef, error) {
	var m message
	err := c.call(ctx, "sendMessage", sendMessageParams{
		ChatID:      string(chat),
		Text:        msg.Text,
		ReplyMarkup: keyboard(msg.Buttons),
	}, &m)
	if err != nil {
		return transport.MessageRef{}, err
	}
	return transport.MessageRef{ChatID: chat, MessageID: itoa(m.MessageID)}, nil
}

// Edit replaces the text of a sent message. Edits that change nothing are
// not errors.
func (c *Client) Edit(ctx context.Context, ref transport.MessageRef, text string) error {
	id, err := messageID(ref)
	if err != nil {
		return err
	}
	err = c.call(ctx, "editMessageText", editMessageParams{ChatID: string(ref.ChatID), MessageID: id, Text: text}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified") {
		return nil
	}
	return err
}

// Delete removes a sent message.
func (c *Client) Delete(ctx context.Context, ref transport.MessageRef) error {
	id, err := messageID(ref)
	if err != nil {
		return err
	}
	return c.call(ctx, "deleteMessage", deleteMessageParams{ChatID: string(ref.ChatID), MessageID: id}, nil)
}

// AnswerCallback acknowledges a button press.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", answerCallbackParams{CallbackQueryID: callbackID, Text: text}, nil)
}

// Download resolves the file path and streams the content into w.
func (c *Client) Download(ctx context.Context, media transport.MediaRef, w io.Writer) error {
	var f file
	if err := c.call(ctx, "getFile", map[string]string{"file_id": media.FileID}, &f); err != nil {
		return err
	}
	if f.FilePath == "" {
		return fmt.Errorf("telegram getFile: no file path for %s", media.FileID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL(f.FilePath), nil)
	if err != nil {
		return fmt.Errorf("telegram download: %w", redact(err))
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordTelegramRequest("file", "error")
		return fmt.Errorf("telegram download: %w", redact(err))
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		metrics.RecordTelegramRequest("file", "api_error")
		return fmt.Errorf("telegram download: http %d", resp.StatusCode)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		metrics.RecordTelegramRequest("file", "error")
		return fmt.Errorf("telegram download: %w", err)
	}
	metrics.RecordTelegramRequest("file", "ok")
	return nil
}

// Upload sends a video as a multipart sendVideo request. The body is
// streamed, never buffered whole.
func (c *Client) Upload(ctx context.Context, chat transport.ChatID, up transport.Upload) (transport.MessageRef, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeVideoForm(mw, chat, up))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendVideo"), pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return transport.MessageRef{}, fmt.Errorf("telegram sendVideo: %w", redact(err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var m message
	err = c.do(req, "sendVideo", &m)
	// unblock the writer if the request ended early
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return transport.MessageRef{}, err
	}
	return transport.MessageRef{ChatID: chat, MessageID: itoa(m.MessageID)}, nil
}

func writeVideoForm(mw *multipart.Writer, chat transport.ChatID, up transport.Upload) error {
	fields := [][2]string{
		{"chat_id", string(chat)},
		{"supports_streaming", "true"},
	}
	if up.Caption != "" {
		fields = append(fields, [2]string{"caption", up.Caption})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	name := filepath.Base(up.FileName)
	if name == "." || name == "/" {
		name = "video.mp4"
	}
	part, err := mw.CreateFormFile("video", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, up.Reader); err != nil {
		return err
	}
	return mw.Close()
}

func messageID(ref transport.MessageRef) (int64, error) {
	id, err := strconv.ParseInt(ref.MessageID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: message id %q: %w", ref.MessageID, err)
	}
	return id, nil
}

var (
	_ transport.Transport = (*Client)(nil)
	_ transport.Source    = (*Client)(nil)
)
