// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package records persists bot users and job history for the ops API.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid record")
)

// JobStatus is the lifecycle state of a job record.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
		return true
	}
	return false
}

// User is a chat user who has interacted with the bot.
type User struct {
	TelegramID string    `json:"telegramId"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"firstName,omitempty"`
	IsBlocked  bool      `json:"isBlocked"`
	CreatedAt  time.Time `json:"createdAt"`
}

// JobSettings is the watermark styling of a job. The watermark content is
// never stored.
type JobSettings struct {
	Position model.Position `json:"position"`
	Size     model.Size     `json:"size"`
	Opacity  model.Opacity  `json:"opacity"`
}

// Job is one processing request.
type Job struct {
	ID            string      `json:"id"`
	TelegramID    string      `json:"telegramId"`
	FileID        string      `json:"fileId,omitempty"`
	Status        JobStatus   `json:"status"`
	WatermarkType model.Kind  `json:"watermarkType,omitempty"`
	Settings      JobSettings `json:"settings"`
	CreatedAt     time.Time   `json:"createdAt"`
	CompletedAt   *time.Time  `json:"completedAt,omitempty"`
}

// Stats aggregates repository counters.
type Stats struct {
	TotalUsers int `json:"totalUsers"`
	TotalJobs  int `json:"totalJobs"`
	ActiveJobs int `json:"activeJobs"` // status processing
}

// DefaultRecentLimit bounds RecentJobs when the caller passes no limit.
const DefaultRecentLimit = 50

// Repository stores users and jobs.
type Repository interface {
	// UpsertUser creates the user or refreshes its names. CreatedAt and
	// IsBlocked of an existing user are kept.
	UpsertUser(ctx context.Context, u User) (User, error)
	CreateJob(ctx context.Context, j Job) error
	// UpdateJobStatus sets the status and, for terminal states, CompletedAt.
	UpdateJobStatus(ctx context.Context, id string, status JobStatus) error
	Stats(ctx context.Context) (Stats, error)
	// RecentJobs returns jobs newest first.
	RecentJobs(ctx context.Context, limit int) ([]Job, error)
	Ping(ctx context.Context) error
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultRecentLimit
	}
	return limit
}
