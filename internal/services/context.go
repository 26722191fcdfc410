package services

import "context"

type contextKey string

const (
	itemIDKey     contextKey = "item_id"
	entityCodeKey contextKey = "entity_code"
	batchIDKey    contextKey = "batch_id"
)

// WithItemID annotates context with the queue item identifier.
func WithItemID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, itemIDKey, id)
}

// ItemIDFromContext extracts the queue item identifier if present.
func ItemIDFromContext(ctx context.Context) (int64, bool) {
	if v, ok := ctx.Value(itemIDKey).(int64); ok {
		return v, true
	}
	return 0, false
}

// WithEntityCode annotates context with the SIORG external code being synced.
func WithEntityCode(ctx context.Context, code string) context.Context {
	if code == "" {
		return ctx
	}
	return context.WithValue(ctx, entityCodeKey, code)
}

// EntityCodeFromContext extracts the external code if present.
func EntityCodeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(entityCodeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithBatchID annotates context with the claim batch identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, batchIDKey, id)
}

// BatchIDFromContext extracts the claim batch identifier if present.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(batchIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
