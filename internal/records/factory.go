// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package records

import (
	"context"
	"fmt"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Options selects a repository backend.
type Options struct {
	Backend string
	Path    string // sqlite database file
}

// Open returns the configured repository. An empty backend means memory.
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryRepository(), nil
	case BackendSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("records: sqlite backend needs a path")
		}
		return OpenSQLite(ctx, opts.Path)
	default:
		return nil, fmt.Errorf("records: unknown backend %q", opts.Backend)
	}
}
