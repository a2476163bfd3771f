// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"time"

	"github.com/ManuGH/vidmark/internal/transport"
)

// UpdateHandler processes one inbound update. It must not panic.
type UpdateHandler interface {
	Handle(ctx context.Context, upd transport.Update)
}

// JobPool is the part of the job pool the daemon drives.
type JobPool interface {
	Shutdown(ctx context.Context) error
}

// OpsServer serves the ops HTTP surface until ctx ends.
type OpsServer interface {
	ListenAndServe(ctx context.Context, shutdownTimeout time.Duration) error
}

// Deps contains the collaborators of an App.
// This allows for clean dependency injection and easier testing.
type Deps struct {
	Source  transport.Source
	Handler UpdateHandler
	Pool    JobPool
	// API is optional; nil disables the ops server.
	API OpsServer
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Source == nil {
		return ErrMissingSource
	}
	if d.Handler == nil {
		return ErrMissingHandler
	}
	if d.Pool == nil {
		return ErrMissingPool
	}
	return nil
}
