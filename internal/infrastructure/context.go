package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateTraceID returns a new UUID v4 trace ID.
func GenerateTraceID() string {
	return uuid.New().String()
}

// EnsureTraceID returns ctx unchanged when it already carries a trace ID,
// otherwise a child context with a fresh one.
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	return WithTraceID(ctx, GenerateTraceID())
}

// LoggerWithContext returns the global logger bound to the trace ID in
// ctx, if any. Request-scoped code uses this instead of the bare global.
func LoggerWithContext(ctx context.Context) *slog.Logger {
	if traceID := GetTraceID(ctx); traceID != "" {
		return GetLogger().With(slog.String("trace_id", traceID))
	}
	return GetLogger()
}

// WithComponent tags logger with a component attribute.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String("component", component))
}

// WithError tags logger with err's message. A nil err returns logger
// unchanged.
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With(slog.String("error", err.Error()))
}
