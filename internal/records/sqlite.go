// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
	"github.com/ManuGH/vidmark/internal/persistence/sqlite"
)

var schema = []string{
	`CREATE TABLE users (
		telegram_id TEXT PRIMARY KEY,
		username    TEXT,
		first_name  TEXT,
		is_blocked  INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL
	);
	CREATE TABLE jobs (
		id             TEXT PRIMARY KEY,
		telegram_id    TEXT NOT NULL,
		file_id        TEXT,
		status         TEXT NOT NULL,
		watermark_type TEXT,
		settings       TEXT NOT NULL DEFAULT '{}',
		created_at     INTEGER NOT NULL,
		completed_at   INTEGER
	);
	CREATE INDEX idx_jobs_created ON jobs(created_at DESC);
	CREATE INDEX idx_jobs_status ON jobs(status);`,
}

// SQLiteRepository stores records in SQLite. Times are unix milliseconds.
type SQLiteRepository struct {
	DB  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and migrates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("records: %w", err)
	}
	return &SQLiteRepository{DB: db, now: time.Now}, nil
}

func (r *SQLiteRepository) UpsertUser(ctx context.Context, u User) (User, error) {
	if u.TelegramID == "" {
		return User{}, fmt.Errorf("%w: empty telegram id", ErrInvalidInput)
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	const q = `
	INSERT INTO users (telegram_id, username, first_name, created_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(telegram_id) DO UPDATE SET
		username = excluded.username,
		first_name = excluded.first_name
	RETURNING is_blocked, created_at`
	var blocked bool
	var createdMs int64
	if err := r.DB.QueryRowContext(ctx, q, u.TelegramID, u.Username, u.FirstName, created.UnixMilli()).Scan(&blocked, &createdMs); err != nil {
		return User{}, fmt.Errorf("records: upsert user: %w", err)
	}
	u.IsBlocked = blocked
	u.CreatedAt = time.UnixMilli(createdMs).UTC()
	return u, nil
}

func (r *SQLiteRepository) CreateJob(ctx context.Context, j Job) error {
	if j.ID == "" || j.TelegramID == "" || !j.Status.Valid() {
		return fmt.Errorf("%w: job needs id, user and status", ErrInvalidInput)
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = r.now()
	}
	settings, err := json.Marshal(j.Settings)
	if err != nil {
		return fmt.Errorf("records: encode settings: %w", err)
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO jobs (id, telegram_id, file_id, status, watermark_type, settings, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.TelegramID, j.FileID, string(j.Status), string(j.WatermarkType), string(settings), j.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("records: create job: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id string, status JobStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}
	var completed any
	if status.Terminal() {
		completed = r.now().UnixMilli()
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE jobs SET status = ?, completed_at = COALESCE(?, completed_at) WHERE id = ?`,
		string(status), completed, id)
	if err != nil {
		return fmt.Errorf("records: update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.DB.QueryRowContext(ctx, `
	SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM jobs),
		(SELECT COUNT(*) FROM jobs WHERE status = ?)`, string(JobProcessing)).
		Scan(&s.TotalUsers, &s.TotalJobs, &s.ActiveJobs)
	if err != nil {
		return Stats{}, fmt.Errorf("records: stats: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) RecentJobs(ctx context.Context, limit int) ([]Job, error) {
	rows, err := r.DB.QueryContext(ctx, `
	SELECT id, telegram_id, file_id, status, watermark_type, settings, created_at, completed_at
	FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("records: recent jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Job
	for rows.Next() {
		var (
			j                      Job
			fileID, kind, settings sql.NullString
			status                 string
			createdMs              int64
			completedMs            sql.NullInt64
		)
		if err := rows.Scan(&j.ID, &j.TelegramID, &fileID, &status, &kind, &settings, &createdMs, &completedMs); err != nil {
			return nil, fmt.Errorf("records: scan job: %w", err)
		}
		j.FileID = fileID.String
		j.Status = JobStatus(status)
		j.WatermarkType = model.Kind(kind.String)
		if settings.Valid && settings.String != "" {
			if err := json.Unmarshal([]byte(settings.String), &j.Settings); err != nil {
				return nil, fmt.Errorf("records: decode settings of %s: %w", j.ID, err)
			}
		}
		j.CreatedAt = time.UnixMilli(createdMs).UTC()
		if completedMs.Valid {
			t := time.UnixMilli(completedMs.Int64).UTC()
			j.CompletedAt = &t
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// Verify runs an integrity check on the database file.
func (r *SQLiteRepository) Verify(ctx context.Context) error {
	return sqlite.QuickCheck(ctx, r.DB)
}

func (r *SQLiteRepository) Close() error {
	if r.DB == nil {
		return nil
	}
	err := r.DB.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}
