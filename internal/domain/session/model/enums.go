// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"strconv"
)

// Step is a named state of the conversation.
type Step string

const (
	StepIdle             Step = "idle"
	StepAwaitingType     Step = "awaiting_type"
	StepAwaitingText     Step = "awaiting_text"
	StepAwaitingImage    Step = "awaiting_image"
	StepAwaitingPosition Step = "awaiting_position"
	StepAwaitingSize     Step = "awaiting_size"
	StepAwaitingOpacity  Step = "awaiting_opacity"
	StepProcessing       Step = "processing"
)

// Steps lists every step in conversation order.
var Steps = []Step{
	StepIdle,
	StepAwaitingType,
	StepAwaitingText,
	StepAwaitingImage,
	StepAwaitingPosition,
	StepAwaitingSize,
	StepAwaitingOpacity,
	StepProcessing,
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	for _, known := range Steps {
		if s == known {
			return true
		}
	}
	return false
}

// Configuring reports whether the step collects watermark input.
func (s Step) Configuring() bool {
	switch s {
	case StepAwaitingType, StepAwaitingText, StepAwaitingImage,
		StepAwaitingPosition, StepAwaitingSize, StepAwaitingOpacity:
		return true
	default:
		return false
	}
}

// Kind is the watermark kind.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindText || k == KindImage
}

// Position is where the watermark is placed.
type Position string

const (
	PositionTopLeft     Position = "tl"
	PositionTopRight    Position = "tr"
	PositionBottomLeft  Position = "bl"
	PositionBottomRight Position = "br"
	PositionCenter      Position = "center"
	// PositionMotion moves the watermark across the frame over time.
	PositionMotion Position = "motion"
)

// Positions lists the positions in button order.
var Positions = []Position{
	PositionTopLeft, PositionTopRight,
	PositionBottomLeft, PositionBottomRight,
	PositionCenter, PositionMotion,
}

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	for _, known := range Positions {
		if p == known {
			return true
		}
	}
	return false
}

// Label is the human readable button label.
func (p Position) Label() string {
	switch p {
	case PositionTopLeft:
		return "Top-Left"
	case PositionTopRight:
		return "Top-Right"
	case PositionBottomLeft:
		return "Bottom-Left"
	case PositionBottomRight:
		return "Bottom-Right"
	case PositionCenter:
		return "Center"
	case PositionMotion:
		return "Motion"
	default:
		return string(p)
	}
}

// Size is the relative watermark size.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Sizes lists the sizes in button order.
var Sizes = []Size{SizeSmall, SizeMedium, SizeLarge}

// Valid reports whether s is a known size.
func (s Size) Valid() bool {
	return s == SizeSmall || s == SizeMedium || s == SizeLarge
}

// Label is the human readable button label.
func (s Size) Label() string {
	switch s {
	case SizeSmall:
		return "Small"
	case SizeMedium:
		return "Medium"
	case SizeLarge:
		return "Large"
	default:
		return string(s)
	}
}

// Opacity is the watermark alpha. The zero value means unset.
type Opacity float64

const (
	Opacity25  Opacity = 0.25
	Opacity50  Opacity = 0.5
	Opacity75  Opacity = 0.75
	Opacity100 Opacity = 1.0
)

// Opacities lists the offered opacity choices.
var Opacities = []Opacity{Opacity25, Opacity50, Opacity75, Opacity100}

// Valid reports whether o is within (0, 1].
func (o Opacity) Valid() bool {
	return o > 0 && o <= 1
}

// String formats the opacity with the shortest exact representation.
func (o Opacity) String() string {
	return strconv.FormatFloat(float64(o), 'f', -1, 64)
}

// Label is the human readable button label ("50%").
func (o Opacity) Label() string {
	return strconv.FormatFloat(float64(o)*100, 'f', -1, 64) + "%"
}
