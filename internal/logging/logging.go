// Package logging builds the slog logger copylog components share: a
// console handler plus an optional rotating file.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level applies to the console handler.
	Level slog.Level
	// Console receives human-readable output. Defaults to os.Stderr.
	Console io.Writer
	// File enables a rotating log file at info level or below Level,
	// whichever is more verbose.
	File string
	// JSON selects the JSON handler for the file.
	JSON bool
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger and a closer for its file sink. The closer is
// always non-nil.
func New(opts Options) (*slog.Logger, io.Closer) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: opts.Level}),
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		logF := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    getEnvInt("COPYLOG_LOG_MAX_SIZE", 50), // MB
			MaxBackups: getEnvInt("COPYLOG_LOG_MAX_BACKUPS", 7),
			MaxAge:     getEnvInt("COPYLOG_LOG_MAX_AGE", 30), // days
			Compress:   getEnvBool("COPYLOG_LOG_COMPRESS", true),
		}
		fileLevel := slog.LevelInfo
		if opts.Level < fileLevel {
			fileLevel = opts.Level
		}
		fileOpts := &slog.HandlerOptions{Level: fileLevel}
		if opts.JSON {
			handlers = append(handlers, slog.NewJSONHandler(logF, fileOpts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(logF, fileOpts))
		}
		closer = logF
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), closer
	}
	return slog.New(&fanout{handlers: handlers}), closer
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fanout sends each record to every handler that accepts its level.
type fanout struct {
	handlers []slog.Handler
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: handlers}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &fanout{handlers: handlers}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
