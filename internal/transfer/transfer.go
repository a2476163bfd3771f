// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package transfer moves media between the chat platform and local files,
// reporting throttled, non-decreasing progress.
package transfer

import (
	"errors"
	"fmt"
)

// ErrTransfer classifies every failed download or upload.
var ErrTransfer = errors.New("media transfer failed")

// ErrTooLarge is returned when a download exceeds the configured limit.
var ErrTooLarge = errors.New("media exceeds size limit")

// Op names a transfer direction.
type Op string

const (
	OpDownload Op = "download"
	OpUpload   Op = "upload"
)

// TransferError wraps the cause of a failed transfer.
type TransferError struct {
	Op  Op
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// Is reports ErrTransfer for every TransferError.
func (e *TransferError) Is(target error) bool { return target == ErrTransfer }

// Progress is a snapshot of one transfer. Total is 0 when unknown.
type Progress struct {
	Transferred int64
	Total       int64
}

// Percent returns the completion in [0,100]. Unknown totals report 0.
func (p Progress) Percent() float64 {
	if p.Total <= 0 || p.Transferred <= 0 {
		return 0
	}
	if p.Transferred >= p.Total {
		return 100
	}
	return float64(p.Transferred) * 100 / float64(p.Total)
}
