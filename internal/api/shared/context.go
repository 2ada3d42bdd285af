package shared

import (
	"context"

	"github.com/google/uuid"
)

type traceIDKey struct{}

// SetTraceID returns ctx carrying a new random trace ID. The ID appears in
// error bodies and log lines so the two can be matched.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, uuid.NewString())
}

// WithTraceID returns ctx carrying id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// GetTraceID returns the trace ID in ctx, or "".
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}
