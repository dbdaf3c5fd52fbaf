package flowclust

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with flowclust-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithRun adds the run label to the logger.
func (l *Logger) WithRun(label string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", label),
	}
}

// WithK adds a k (requested cluster count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogReduction logs the outcome of the principal-component step.
func (l *Logger) LogReduction(ctx context.Context, components int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "reduction failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "reduction completed",
			"components", components,
			"elapsed", elapsed,
		)
	}
}

// LogIteration logs one k-means update step.
func (l *Logger) LogIteration(ctx context.Context, iteration int, moving float32) {
	l.DebugContext(ctx, "iteration completed",
		"iteration", iteration,
		"moving", moving,
	)
}

// LogMerge logs agglomeration progress.
func (l *Logger) LogMerge(ctx context.Context, step, live int, distance float32) {
	l.DebugContext(ctx, "merge completed",
		"step", step,
		"live", live,
		"distance", distance,
	)
}

// LogCacheHit logs a distance matrix served from the cache.
func (l *Logger) LogCacheHit(ctx context.Context, name string) {
	l.DebugContext(ctx, "distance matrix cache hit",
		"name", name,
	)
}

// LogCacheMiss logs a distance matrix that had to be computed.
func (l *Logger) LogCacheMiss(ctx context.Context, name string, elapsed time.Duration) {
	l.InfoContext(ctx, "distance matrix computed",
		"name", name,
		"elapsed", elapsed,
	)
}

// LogRun logs a finished clustering run.
func (l *Logger) LogRun(ctx context.Context, groups int, entropy float64, entropyDefined bool, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "clustering failed",
			"error", err,
		)
	case !entropyDefined:
		l.WarnContext(ctx, "clustering completed with undefined entropy",
			"groups", groups,
		)
	default:
		l.InfoContext(ctx, "clustering completed",
			"groups", groups,
			"entropy", entropy,
		)
	}
}
