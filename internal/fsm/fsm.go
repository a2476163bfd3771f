// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm holds a small, strict transition table.
// State lives with the caller (e.g. in a session store); the table only
// answers whether an edge exists and where it leads.
package fsm

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for an event that has no edge from the current state.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition describes a single edge in the FSM.
type Transition[S ~string, E ~string] struct {
	From  S
	Event E
	To    S
}

// Table is an immutable set of transitions. Unknown transitions are errors.
type Table[S ~string, E ~string] struct {
	index map[string]Transition[S, E]
}

// New builds a table, rejecting duplicate (from, event) edges.
func New[S ~string, E ~string](transitions []Transition[S, E]) (*Table[S, E], error) {
	idx := make(map[string]Transition[S, E], len(transitions))
	for _, t := range transitions {
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Table[S, E]{index: idx}, nil
}

// MustNew is New for package-level tables.
func MustNew[S ~string, E ~string](transitions []Transition[S, E]) *Table[S, E] {
	t, err := New(transitions)
	if err != nil {
		panic(err)
	}
	return t
}

// Next returns the target state for event fired in state from.
func (t *Table[S, E]) Next(from S, event E) (S, error) {
	tr, ok := t.index[key(from, event)]
	if !ok {
		return from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}
	return tr.To, nil
}

// Allowed reports whether event has an edge from state from.
func (t *Table[S, E]) Allowed(from S, event E) bool {
	_, ok := t.index[key(from, event)]
	return ok
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
