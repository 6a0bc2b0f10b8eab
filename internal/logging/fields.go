package logging

// Standardized attribute keys. Keep these stable; operators grep for them.
const (
	FieldComponent = "component"

	FieldFile = "file"

	FieldStatus = "status"

	FieldFailedCount = "failed_count"

	FieldEventType = "event_type"

	FieldErrorHint = "error_hint"

	FieldRunID = "run_id"
)
