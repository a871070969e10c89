// Package logging wraps log/slog with the field names used across dynval.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Logger wraps slog.Logger with dynval-specific helpers.
type Logger struct {
	*slog.Logger
}

// ParseLevel maps a config level name to a slog level. Unknown names map to
// info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New creates a Logger writing to w. format is "json" or "text".
func New(w io.Writer, level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Noop creates a Logger that discards all output.
func Noop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable
	}))}
}

// WithSQL adds the statement text to the logger.
func (l *Logger) WithSQL(sql string) *Logger {
	return &Logger{Logger: l.Logger.With("sql", sql)}
}

// LogQuery logs one executed statement.
func (l *Logger) LogQuery(ctx context.Context, tables, rows int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"duration", elapsed,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "query completed",
		"tables", tables,
		"rows", rows,
		"duration", elapsed,
	)
}

// LogExport logs one workbook export.
func (l *Logger) LogExport(ctx context.Context, sheets, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed",
			"sheets", sheets,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "export completed",
		"sheets", sheets,
		"bytes", size,
	)
}
