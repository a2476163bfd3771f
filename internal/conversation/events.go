// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package conversation

import (
	"github.com/ManuGH/vidmark/internal/domain/session/model"
	"github.com/ManuGH/vidmark/internal/fsm"
)

// Event is an input that can move a session between steps.
type Event string

const (
	EventVideo       Event = "video"
	EventChooseText  Event = "choose_text"
	EventChooseImage Event = "choose_image"
	EventText        Event = "text"
	EventImage       Event = "image"
	EventPosition    Event = "position"
	EventSize        Event = "size"
	EventOpacity     Event = "opacity"
	EventJobFinished Event = "job_finished"
)

type transition = fsm.Transition[model.Step, Event]

// transitions is the full conversation graph. Anything not listed is
// rejected and leaves the session where it is.
var transitions = fsm.MustNew([]transition{
	{From: model.StepIdle, Event: EventVideo, To: model.StepAwaitingType},
	{From: model.StepProcessing, Event: EventVideo, To: model.StepAwaitingType},

	{From: model.StepAwaitingType, Event: EventChooseText, To: model.StepAwaitingText},
	{From: model.StepAwaitingType, Event: EventChooseImage, To: model.StepAwaitingImage},

	{From: model.StepAwaitingText, Event: EventText, To: model.StepAwaitingPosition},
	{From: model.StepAwaitingImage, Event: EventImage, To: model.StepAwaitingPosition},

	{From: model.StepAwaitingPosition, Event: EventPosition, To: model.StepAwaitingSize},
	{From: model.StepAwaitingSize, Event: EventSize, To: model.StepAwaitingOpacity},
	{From: model.StepAwaitingOpacity, Event: EventOpacity, To: model.StepProcessing},

	{From: model.StepProcessing, Event: EventJobFinished, To: model.StepIdle},
})

// choiceEvent maps a decoded button payload to its event.
func choiceEvent(c model.Choice) Event {
	switch c.Kind {
	case model.ChoiceKindWatermark:
		if c.Watermark == model.KindImage {
			return EventChooseImage
		}
		return EventChooseText
	case model.ChoicePosition:
		return EventPosition
	case model.ChoiceSize:
		return EventSize
	case model.ChoiceOpacity:
		return EventOpacity
	default:
		return ""
	}
}
