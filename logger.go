package labelstore

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with labelstore-specific context.
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

// WithDataset adds the dataset locator to the logger.
func (l *Logger) WithDataset(locator string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dataset", locator),
	}
}

// LogLoad logs a dataset load.
func (l *Logger) LogLoad(ctx context.Context, locator, localPath string, images, annotations int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dataset load failed",
			"locator", locator,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "dataset loaded",
			"locator", locator,
			"path", localPath,
			"images", images,
			"annotations", annotations,
		)
	}
}

// LogSave logs an explicit save. Saves without pending changes log at debug.
func (l *Logger) LogSave(ctx context.Context, path string, saved bool, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "save failed",
			"path", path,
			"error", err,
		)
	case saved:
		l.InfoContext(ctx, "save completed",
			"path", path,
		)
	default:
		l.DebugContext(ctx, "save skipped, no changes",
			"path", path,
		)
	}
}

// LogUpload logs an upload of the local copy.
func (l *Logger) LogUpload(ctx context.Context, uri, etag string, size int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "upload failed",
			"uri", uri,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "upload completed",
			"uri", uri,
			"etag", etag,
			"size", size,
		)
	}
}

// LogDownload logs an image fetch through the cache.
func (l *Logger) LogDownload(ctx context.Context, uri, localPath string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "image download failed",
			"uri", uri,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "image available",
			"uri", uri,
			"path", localPath,
		)
	}
}
