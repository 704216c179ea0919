package context

import (
	"context"
)

type contextKey string

var (
	requestIDKey contextKey = "request_id"
	callerKey    contextKey = "caller"
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// SetCaller stores the authenticated subject of a manual trigger.
func SetCaller(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, callerKey, subject)
}

// GetCaller returns the authenticated subject, or "anonymous" when auth is disabled.
func GetCaller(ctx context.Context) string {
	if v, ok := ctx.Value(callerKey).(string); ok && v != "" {
		return v
	}
	return "anonymous"
}
