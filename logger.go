package meshfeat

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with meshfeat-specific context.
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

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPartition adds a partition field to the logger.
func (l *Logger) WithPartition(part int) *Logger {
	return &Logger{
		Logger: l.Logger.With("partition", part),
	}
}

// WithRun adds a run field to the logger.
func (l *Logger) WithRun(run int) *Logger {
	return &Logger{
		Logger: l.Logger.With("run", run),
	}
}

// LogLoad logs a metadata, index or zone-table load.
func (l *Logger) LogLoad(ctx context.Context, kind, path string, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"kind", kind,
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "cache populated",
			"kind", kind,
			"path", path,
			"elapsed", elapsed,
		)
	}
}

// LogRead logs a feature read operation.
func (l *Logger) LogRead(ctx context.Context, op string, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "read failed",
			"op", op,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "read completed",
			"op", op,
			"bytes", bytes,
		)
	}
}
