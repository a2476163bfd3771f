// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telegram

import (
	"strconv"

	"github.com/ManuGH/vidmark/internal/transport"
)

// Bot API wire types, reduced to the fields the bot reads.

type user struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type chat struct {
	ID int64 `json:"id"`
}

type photoSize struct {
	FileID   string `json:"file_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileSize int64  `json:"file_size,omitempty"`
}

type video struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

type message struct {
	MessageID int64       `json:"message_id"`
	From      *user       `json:"from,omitempty"`
	Chat      chat        `json:"chat"`
	Text      string      `json:"text,omitempty"`
	Photo     []photoSize `json:"photo,omitempty"`
	Video     *video      `json:"video,omitempty"`
	Document  *document   `json:"document,omitempty"`
}

type callbackQuery struct {
	ID      string   `json:"id"`
	From    user     `json:"from"`
	Message *message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}

type update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *message       `json:"message,omitempty"`
	CallbackQuery *callbackQuery `json:"callback_query,omitempty"`
}

type file struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

func keyboard(rows [][]transport.Button) *inlineKeyboard {
	if len(rows) == 0 {
		return nil
	}
	kb := &inlineKeyboard{InlineKeyboard: make([][]inlineButton, 0, len(rows))}
	for _, row := range rows {
		out := make([]inlineButton, 0, len(row))
		for _, b := range row {
			out = append(out, inlineButton{Text: b.Text, CallbackData: b.Data, URL: b.URL})
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, out)
	}
	return kb
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

// toUpdate converts a wire update. ok is false for updates the bot does
// not handle (channel posts, edits, messages without a sender).
func toUpdate(u update) (transport.Update, bool) {
	out := transport.Update{ID: itoa(u.UpdateID)}
	switch {
	case u.Message != nil:
		m := u.Message
		if m.From == nil {
			return out, false
		}
		out.UserID = itoa(m.From.ID)
		out.Username = m.From.Username
		out.FirstName = m.From.FirstName
		out.ChatID = transport.ChatID(itoa(m.Chat.ID))
		out.Message = &transport.IncomingMessage{
			ID:    itoa(m.MessageID),
			Text:  m.Text,
			Media: media(m),
		}
		return out, true
	case u.CallbackQuery != nil:
		q := u.CallbackQuery
		out.UserID = itoa(q.From.ID)
		out.Username = q.From.Username
		out.FirstName = q.From.FirstName
		// private chats share the user's id
		out.ChatID = transport.ChatID(out.UserID)
		cb := &transport.Callback{ID: q.ID, Data: q.Data}
		if q.Message != nil {
			out.ChatID = transport.ChatID(itoa(q.Message.Chat.ID))
			cb.MessageID = itoa(q.Message.MessageID)
		}
		out.Callback = cb
		return out, true
	default:
		return out, false
	}
}

func media(m *message) *transport.MediaRef {
	switch {
	case m.Video != nil:
		return &transport.MediaRef{
			Kind:     transport.MediaVideo,
			FileID:   m.Video.FileID,
			FileName: m.Video.FileName,
			MimeType: m.Video.MimeType,
			Size:     m.Video.FileSize,
			Duration: m.Video.Duration,
		}
	case m.Document != nil:
		return &transport.MediaRef{
			Kind:     transport.MediaDocument,
			FileID:   m.Document.FileID,
			FileName: m.Document.FileName,
			MimeType: m.Document.MimeType,
			Size:     m.Document.FileSize,
		}
	case len(m.Photo) > 0:
		// sizes are sent smallest first
		p := m.Photo[len(m.Photo)-1]
		return &transport.MediaRef{
			Kind:     transport.MediaPhoto,
			FileID:   p.FileID,
			MimeType: "image/jpeg",
			Size:     p.FileSize,
		}
	default:
		return nil
	}
}
