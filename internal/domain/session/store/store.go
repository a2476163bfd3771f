// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store holds the per-user conversation sessions.
package store

import (
	"context"
	"errors"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
)

var (
	// ErrConflict is returned when an optimistic update kept losing races.
	ErrConflict = errors.New("session update conflict")
	// ErrEmptyUserID is returned for operations without a user identity.
	ErrEmptyUserID = errors.New("empty user id")
)

// Store is the session registry.
//
// Get never returns (nil, nil): a missing session is returned in its initial
// step. Update applies fn atomically to the stored session; if fn returns an
// error the stored session is left untouched. Callers receive copies, so
// mutating a returned session has no effect until it is Put back.
type Store interface {
	Get(ctx context.Context, userID string) (*model.Session, error)
	Put(ctx context.Context, s *model.Session) error
	Update(ctx context.Context, userID string, fn func(*model.Session) error) (*model.Session, error)
	Reset(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
	Close() error
}

func resetFn(s *model.Session) error {
	s.Reset()
	return nil
}
