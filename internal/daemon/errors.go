// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingSource is returned when no update source is provided.
	ErrMissingSource = errors.New("update source is required")

	// ErrMissingHandler is returned when no update handler is provided.
	ErrMissingHandler = errors.New("update handler is required")

	// ErrMissingPool is returned when no job pool is provided.
	ErrMissingPool = errors.New("job pool is required")

	// ErrSourceClosed is returned when the update stream ends while the app
	// is still supposed to run.
	ErrSourceClosed = errors.New("update source closed unexpectedly")

	// ErrAlreadyStarted is returned by a second call to Run.
	ErrAlreadyStarted = errors.New("app already started")
)
