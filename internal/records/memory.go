// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package records

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps records in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
	jobs  map[string]Job
	seq   map[string]int // insertion order breaks CreatedAt ties
	next  int
	now   func() time.Time
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[string]User),
		jobs:  make(map[string]Job),
		seq:   make(map[string]int),
		now:   time.Now,
	}
}

func (r *MemoryRepository) UpsertUser(_ context.Context, u User) (User, error) {
	if u.TelegramID == "" {
		return User{}, fmt.Errorf("%w: empty telegram id", ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[u.TelegramID]; ok {
		u.CreatedAt = existing.CreatedAt
		u.IsBlocked = existing.IsBlocked
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now().UTC()
	}
	r.users[u.TelegramID] = u
	return u, nil
}

func (r *MemoryRepository) CreateJob(_ context.Context, j Job) error {
	if j.ID == "" || j.TelegramID == "" || !j.Status.Valid() {
		return fmt.Errorf("%w: job needs id, user and status", ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[j.ID]; ok {
		return fmt.Errorf("%w: duplicate job id %s", ErrInvalidInput, j.ID)
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = r.now().UTC()
	}
	r.jobs[j.ID] = j
	r.next++
	r.seq[j.ID] = r.next
	return nil
}

func (r *MemoryRepository) UpdateJobStatus(_ context.Context, id string, status JobStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	j.Status = status
	if status.Terminal() {
		now := r.now().UTC()
		j.CompletedAt = &now
	}
	r.jobs[id] = j
	return nil
}

func (r *MemoryRepository) Stats(_ context.Context) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Stats{TotalUsers: len(r.users), TotalJobs: len(r.jobs)}
	for _, j := range r.jobs {
		if j.Status == JobProcessing {
			s.ActiveJobs++
		}
	}
	return s, nil
}

func (r *MemoryRepository) RecentJobs(_ context.Context, limit int) ([]Job, error) {
	limit = normalizeLimit(limit)
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return r.seq[out[a].ID] > r.seq[out[b].ID]
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }

func (r *MemoryRepository) Close() error { return nil }
