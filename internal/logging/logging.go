// v1
// internal/logging/logging.go
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Logger bundles the slog logger with the file it tees into.
type Logger struct {
	*slog.Logger
	file *os.File
}

// Writer exposes the combined stdout and file stream, used by access logs.
func (l *Logger) Writer() io.Writer {
	if l.file == nil {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, l.file)
}

func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New opens path for append and returns a logger writing text records to
// both stdout and the file. An empty path logs to stdout only.
func New(path, level string) (*Logger, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	console := slog.NewTextHandler(os.Stdout, opts)
	if path == "" {
		return &Logger{Logger: slog.New(console)}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	h := NewTee(console, slog.NewTextHandler(f, opts))
	return &Logger{Logger: slog.New(h), file: f}, nil
}

// NewTee fans every record out to all handlers.
func NewTee(handlers ...slog.Handler) slog.Handler {
	return &teeHandler{handlers: handlers}
}

type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *teeHandler) derive(fn func(slog.Handler) slog.Handler) *teeHandler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = fn(h)
	}
	return &teeHandler{handlers: next}
}
