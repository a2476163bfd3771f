// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldChatID    = "chat_id"
	FieldJobID     = "job_id"
	FieldUpdateID  = "update_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldOutcome   = "outcome"

	// Conversation fields
	FieldOldStep = "old_step"
	FieldNewStep = "new_step"
	FieldStep    = "step"

	// Media fields
	FieldFileID   = "file_id"
	FieldMimeType = "mime_type"
	FieldBytes    = "bytes"
	FieldExitCode = "exit_code"

	// Path fields
	FieldPath       = "path"
	FieldInputPath  = "input_path"
	FieldOutputPath = "output_path"
)
