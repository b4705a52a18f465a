package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey int

const (
	// loggerKey is the context key for the logger.
	loggerKey contextKey = iota
	// batchIDKey is the context key for the batch run identifier.
	batchIDKey
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}

	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}

	return Default()
}

// Ctx returns a logger from the context or the default logger.
// This is a shorter alias for FromContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx)
}

// WithBatchID adds a batch run identifier to the context so every stage
// of a run logs under the same batch_id field.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	ctx = context.WithValue(ctx, batchIDKey, batchID)

	logger := FromContext(ctx)
	newLogger := logger.With().Str("batch_id", batchID).Logger()
	return WithLogger(ctx, &newLogger)
}

// BatchID extracts the batch run identifier from context.
func BatchID(ctx context.Context) string {
	if id, ok := ctx.Value(batchIDKey).(string); ok {
		return id
	}
	return ""
}
