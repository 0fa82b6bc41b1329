package logging

// Standardized attribute keys. Loops and services use these so log output
// stays greppable across components.
const (
	FieldComponent = "component"
	FieldRecordUID = "record_uid"
	FieldPostID    = "post_id"
	FieldCommentID = "comment_id"
	FieldAttempt   = "attempt"
	FieldBackend   = "backend"
)
