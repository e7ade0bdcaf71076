package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Attribute keys attached to context loggers.
const (
	KeyRequestID     = "request_id"
	KeyCorrelationID = "correlation_id"
	KeyTraceID       = "trace_id"
	KeySubject       = "subject"
	KeySyncTrigger   = "sync_trigger"
)

var defaultLogger = slog.Default()

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return defaultLogger
	}

	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}

	return defaultLogger
}

// WithContext stores a logger in the context.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// With returns a context whose logger carries attrs in addition to
// whatever the current context logger already has.
func With(ctx context.Context, attrs ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(attrs...))
}

// WithRequestID adds a request ID to the context logger.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return With(ctx, slog.String(KeyRequestID, requestID))
}

// WithTraceID adds a trace ID to the context logger.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return With(ctx, slog.String(KeyTraceID, traceID))
}

// WithCorrelationID adds a correlation ID to the context logger.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return With(ctx, slog.String(KeyCorrelationID, correlationID))
}

// WithSubject adds the authenticated caller to the context logger.
func WithSubject(ctx context.Context, subject string) context.Context {
	return With(ctx, slog.String(KeySubject, subject))
}

// WithSyncTrigger tags log lines emitted during a sync cycle with what
// started it ("schedule" or "manual").
func WithSyncTrigger(ctx context.Context, trigger string) context.Context {
	return With(ctx, slog.String(KeySyncTrigger, trigger))
}

// SetDefault sets the default logger used when no logger is in context.
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
	slog.SetDefault(logger)
}
