package pointcluster

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger with clustering-specific helpers so every run
// reports the same field names.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// orNoop returns l, or a no-op logger when l is nil.
func (l *Logger) orNoop() *Logger {
	if l == nil {
		return NoopLogger()
	}
	return l
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// WithRun tags every record with a fresh run ID so the merge and extract
// records of one run can be correlated.
func (l *Logger) WithRun() *Logger {
	return &Logger{
		Logger: l.Logger.With("run", uuid.New().String()[:8]),
	}
}

// LogRun logs the outcome of a complete clustering run.
func (l *Logger) LogRun(ctx context.Context, mode string, points, clusters int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "clustering run failed",
			"mode", mode,
			"points", points,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "clustering run completed",
		"mode", mode,
		"points", points,
		"clusters", clusters,
		"elapsed", elapsed,
	)
}

// LogMerge logs a single agglomeration step.
func (l *Logger) LogMerge(ctx context.Context, step int, node DendrogramNode) {
	l.DebugContext(ctx, "merge",
		"step", step,
		"left", node.Left,
		"right", node.Right,
		"distance", node.Distance,
	)
}

// LogExtract logs a cluster taken out of the quality-threshold pool.
func (l *Logger) LogExtract(ctx context.Context, c *GridCluster, remaining int) {
	l.DebugContext(ctx, "cluster extracted",
		"centre", c.Centre.Index,
		"size", len(c.Members),
		"diameter", c.Diameter,
		"quality", c.Quality,
		"remaining", remaining,
	)
}
