// Package logging builds the slog loggers used by the CLI and server.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "CONVSIM_LOG_LEVEL"
	EnvFormat = "CONVSIM_LOG_FORMAT"
	EnvFile   = "CONVSIM_LOGFILE"
)

type Options struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
	File   string `yaml:"file"`
}

// FromEnv overrides the fields of base that are set in the environment.
func FromEnv(base Options) Options {
	if v := os.Getenv(EnvLevel); v != "" {
		base.Level = v
	}
	if v := os.Getenv(EnvFormat); v != "" {
		base.Format = v
	}
	if v := os.Getenv(EnvFile); v != "" {
		base.File = v
	}
	return base
}

func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	h, err := handler(w, opts)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

func handler(w io.Writer, opts Options) (slog.Handler, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	ho := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(opts.Format) {
	case "", "text":
		return slog.NewTextHandler(w, ho), nil
	case "json":
		return slog.NewJSONHandler(w, ho), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
}

// Open builds a logger writing to console and, when opts.File is set, to
// that file as well. The returned closer releases the file.
func Open(console io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	ch, err := handler(console, opts)
	if err != nil {
		return nil, nil, err
	}
	if opts.File == "" {
		return slog.New(ch), io.NopCloser(nil), nil
	}

	if dir := filepath.Dir(opts.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(ch)
		logger.Error("failed to open log file; falling back to console only", "error", err)
		return logger, io.NopCloser(nil), nil
	}

	fh, _ := handler(f, opts)
	return slog.New(&teeHandler{handlers: []slog.Handler{ch, fh}}), f, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
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
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		next = append(next, h.WithAttrs(attrs))
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		next = append(next, h.WithGroup(name))
	}
	return &teeHandler{handlers: next}
}
