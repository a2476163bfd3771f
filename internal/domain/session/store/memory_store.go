// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
)

// MemoryStore keeps sessions for the process lifetime.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	m.mu.RLock()
	s, ok := m.sessions[userID]
	m.mu.RUnlock()
	if ok {
		return s.Clone(), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-check: another goroutine may have created it between the locks.
	if s, ok := m.sessions[userID]; ok {
		return s.Clone(), nil
	}
	s = model.NewSession(userID)
	s.UpdatedAt = m.now()
	m.sessions[userID] = s
	return s.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, s *model.Session) error {
	if s == nil || s.UserID == "" {
		return ErrEmptyUserID
	}
	clone := s.Clone()
	clone.UpdatedAt = m.now()
	m.mu.Lock()
	m.sessions[s.UserID] = clone
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, userID string, fn func(*model.Session) error) (*model.Session, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[userID]
	if !ok {
		cur = model.NewSession(userID)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UserID = userID
	next.UpdatedAt = m.now()
	m.sessions[userID] = next
	return next.Clone(), nil
}

func (m *MemoryStore) Reset(ctx context.Context, userID string) error {
	_, err := m.Update(ctx, userID, resetFn)
	return err
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// Len returns the number of known sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
