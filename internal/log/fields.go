// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldItemID     = "item_id"
	FieldCuepointID = "cuepoint_id"
	FieldListenerID = "listener_id"
	FieldGeneration = "generation"

	// Process / dispatch fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldCommand   = "command"
	FieldKind      = "kind"

	// Media fields
	FieldModel     = "model"
	FieldPlatform  = "platform"
	FieldMimeType  = "mime_type"
	FieldQuality   = "quality"
	FieldErrorCode = "error_code"

	// State fields
	FieldMachine  = "machine"
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath = "path"
	FieldURI  = "uri"

	// HTTP fields
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldMethod    = "method"
	FieldRoute     = "route"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
)
