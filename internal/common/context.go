package common

import (
	"context"
	"log/slog"
)

type contextKey string

const contextKeyRunID contextKey = "run_id"

// WithRunID tags ctx with the id of the folder run it belongs to.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextKeyRunID, runID)
}

// RunIDFromContext extracts the run id from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(contextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// LoggerWithRun returns logger annotated with the run id found in ctx, if any.
func LoggerWithRun(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := RunIDFromContext(ctx); id != "" {
		return logger.With("run_id", id)
	}
	return logger
}
