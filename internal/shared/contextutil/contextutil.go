package contextutil

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is unexported so request metadata keys cannot collide with other
// packages storing values on the same context.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	actorIDKey   contextKey = "actor_id"
)

// WithRequestID injects a request id (useful from adapters and unit tests).
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// GetRequestID reads the request id from the context, empty when absent.
func GetRequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey).(string); ok {
		return rid
	}
	return ""
}

// WithActorID records the authenticated actor driving the call. The core
// never authenticates; it only carries the identity for audit fields.
func WithActorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

// GetActorID reads the acting user id from the context, empty when absent.
func GetActorID(ctx context.Context) string {
	if id, ok := ctx.Value(actorIDKey).(string); ok {
		return id
	}
	return ""
}

// LogFields renders the request metadata carried on the context as zap
// fields, so service log lines can be correlated with the inbound call.
func LogFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if rid := GetRequestID(ctx); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if actor := GetActorID(ctx); actor != "" {
		fields = append(fields, zap.String("actor_id", actor))
	}
	return fields
}
