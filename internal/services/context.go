package services

import "context"

type contextKey string

const itemUIDKey contextKey = "record_uid"

// WithRecordUID annotates context with the record identifier being processed.
// Clients pull it back out to correlate request logs with records.
func WithRecordUID(ctx context.Context, uid string) context.Context {
	if uid == "" {
		return ctx
	}
	return context.WithValue(ctx, itemUIDKey, uid)
}

// RecordUIDFromContext extracts the record identifier if present.
func RecordUIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(itemUIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
