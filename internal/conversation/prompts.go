// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package conversation

import (
	"strings"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
	"github.com/ManuGH/vidmark/internal/transport"
)

// User-facing texts.
const (
	PromptType     = "Select Watermark Type:"
	PromptText     = "Send the text for watermark:"
	PromptImage    = "Send the image for watermark:"
	PromptPosition = "Select Position:"
	PromptSize     = "Select Size:"
	PromptOpacity  = "Select Opacity:"

	NoticeNeedImage  = "Please send an image for the watermark."
	NoticeBadText    = "Please send a non-empty text of at most %d characters."
	NoticeUseButtons = "Please choose one of the options above."
	NoticeUnknown    = "Unknown option."
	NoticeJobActive  = "A video is already being processed. Please wait until it is done."
	NoticeTooLarge   = "This video is too large to process."
	NoticeBusy       = "The bot is busy right now. Please try again in a few minutes."
	NoticeQueued     = "Your video is queued. Jobs ahead of you: %d."
	NoticeCanceled   = "Cancelled."
	NoticeNothing    = "Nothing to cancel."
	NoticeImageFail  = "Could not download the image. Please send it again."
	NoticeSubmitFail = "Could not start processing. Please send the video again."
)

func typeKeyboard() [][]transport.Button {
	return [][]transport.Button{{
		{Text: "Text", Data: model.KindChoice(model.KindText).Data()},
		{Text: "Image", Data: model.KindChoice(model.KindImage).Data()},
	}}
}

// positionKeyboard lays the positions out two per row.
func positionKeyboard() [][]transport.Button {
	var rows [][]transport.Button
	for i := 0; i < len(model.Positions); i += 2 {
		row := make([]transport.Button, 0, 2)
		for _, p := range model.Positions[i:min(i+2, len(model.Positions))] {
			row = append(row, transport.Button{Text: p.Label(), Data: model.PositionChoice(p).Data()})
		}
		rows = append(rows, row)
	}
	return rows
}

func sizeKeyboard() [][]transport.Button {
	row := make([]transport.Button, 0, len(model.Sizes))
	for _, s := range model.Sizes {
		row = append(row, transport.Button{Text: s.Label(), Data: model.SizeChoice(s).Data()})
	}
	return [][]transport.Button{row}
}

func opacityKeyboard() [][]transport.Button {
	row := make([]transport.Button, 0, len(model.Opacities))
	for _, o := range model.Opacities {
		row = append(row, transport.Button{Text: o.Label(), Data: model.OpacityChoice(o).Data()})
	}
	return [][]transport.Button{row}
}

// Links are the optional URL buttons under the welcome message.
type Links struct {
	Developer string
	Updates   string
}

func (l Links) keyboard() [][]transport.Button {
	var row []transport.Button
	if l.Developer != "" {
		row = append(row, transport.Button{Text: "Developer", URL: l.Developer})
	}
	if l.Updates != "" {
		row = append(row, transport.Button{Text: "Update", URL: l.Updates})
	}
	if len(row) == 0 {
		return nil
	}
	return [][]transport.Button{row}
}

// WelcomeText greets the user in mathematical sans-serif italic letters.
func WelcomeText(username, firstName string) string {
	name := "User"
	switch {
	case username != "":
		name = "@" + username
	case firstName != "":
		name = firstName
	}
	return stylize("Welcome " + name + " to Video Watermark Bot!")
}

// stylize maps ASCII letters to U+1D608..U+1D63B. Everything else is kept.
func stylize(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 4)
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(0x1D608 + (r - 'A'))
		case r >= 'a' && r <= 'z':
			b.WriteRune(0x1D622 + (r - 'a'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
