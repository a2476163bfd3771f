// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaTooNew is returned when the database was written by a newer build.
var ErrSchemaTooNew = errors.New("sqlite: schema version is newer than this build")

// Migrate applies steps[v:] where v is the current PRAGMA user_version.
// Step i brings the schema to version i+1; each step commits on its own.
func Migrate(ctx context.Context, db *sql.DB, steps []string) error {
	var current int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("sqlite: read user_version: %w", err)
	}
	if current > len(steps) {
		return fmt.Errorf("%w: have %d, know %d", ErrSchemaTooNew, current, len(steps))
	}

	for v := current; v < len(steps); v++ {
		if err := applyStep(ctx, db, steps[v], v+1); err != nil {
			return fmt.Errorf("sqlite: migrate to version %d: %w", v+1, err)
		}
	}
	return nil
}

func applyStep(ctx context.Context, db *sql.DB, stmt string, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the current PRAGMA user_version.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

// QuickCheck runs PRAGMA quick_check and fails unless SQLite reports "ok".
func QuickCheck(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "PRAGMA quick_check")
	if err != nil {
		return fmt.Errorf("sqlite: quick_check: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return fmt.Errorf("sqlite: scan quick_check row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil
	}
	if len(results) == 0 {
		return errors.New("sqlite: quick_check returned no rows")
	}
	return fmt.Errorf("sqlite: integrity problems: %s", strings.Join(results, "; "))
}
