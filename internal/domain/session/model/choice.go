// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"strconv"
	"strings"
)

// ChoiceKind tags the variant carried by a Choice.
type ChoiceKind int

const (
	ChoiceKindWatermark ChoiceKind = iota + 1
	ChoicePosition
	ChoiceSize
	ChoiceOpacity
)

// Button payload prefixes.
const (
	prefixType    = "type_"
	prefixPos     = "pos_"
	prefixSize    = "size_"
	prefixOpacity = "opacity_"
)

// Choice is a decoded button payload. Only the field matching Kind is set.
type Choice struct {
	Kind      ChoiceKind
	Watermark Kind
	Position  Position
	Size      Size
	Opacity   Opacity
}

// KindChoice builds a watermark-kind choice.
func KindChoice(k Kind) Choice { return Choice{Kind: ChoiceKindWatermark, Watermark: k} }

// PositionChoice builds a position choice.
func PositionChoice(p Position) Choice { return Choice{Kind: ChoicePosition, Position: p} }

// SizeChoice builds a size choice.
func SizeChoice(s Size) Choice { return Choice{Kind: ChoiceSize, Size: s} }

// OpacityChoice builds an opacity choice.
func OpacityChoice(o Opacity) Choice { return Choice{Kind: ChoiceOpacity, Opacity: o} }

// Data encodes the choice as a button payload.
func (c Choice) Data() string {
	switch c.Kind {
	case ChoiceKindWatermark:
		return prefixType + string(c.Watermark)
	case ChoicePosition:
		return prefixPos + string(c.Position)
	case ChoiceSize:
		return prefixSize + string(c.Size)
	case ChoiceOpacity:
		return prefixOpacity + c.Opacity.String()
	default:
		return ""
	}
}

// ParseChoice decodes a button payload. Unknown prefixes and values are
// rejected with a *ValidationError.
func ParseChoice(data string) (Choice, error) {
	switch {
	case strings.HasPrefix(data, prefixType):
		k := Kind(strings.TrimPrefix(data, prefixType))
		if !k.Valid() {
			return Choice{}, invalid("choice", "unknown kind %q", k)
		}
		return KindChoice(k), nil
	case strings.HasPrefix(data, prefixPos):
		p := Position(strings.TrimPrefix(data, prefixPos))
		if !p.Valid() {
			return Choice{}, invalid("choice", "unknown position %q", p)
		}
		return PositionChoice(p), nil
	case strings.HasPrefix(data, prefixSize):
		s := Size(strings.TrimPrefix(data, prefixSize))
		if !s.Valid() {
			return Choice{}, invalid("choice", "unknown size %q", s)
		}
		return SizeChoice(s), nil
	case strings.HasPrefix(data, prefixOpacity):
		raw := strings.TrimPrefix(data, prefixOpacity)
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Choice{}, invalid("choice", "malformed opacity %q", raw)
		}
		o := Opacity(v)
		if !offered(o) {
			return Choice{}, invalid("choice", "opacity %q is not offered", raw)
		}
		return OpacityChoice(o), nil
	default:
		return Choice{}, invalid("choice", "unknown payload %q", data)
	}
}

func offered(o Opacity) bool {
	for _, known := range Opacities {
		if o == known {
			return true
		}
	}
	return false
}
