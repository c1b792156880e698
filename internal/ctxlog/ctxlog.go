// Package ctxlog provides context-aware structured logging utilities.
package ctxlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// Level is one of debug, info, warn or error.
	Level  string `yaml:"level"`
	// Format is json or text.
	Format string `yaml:"format"`
	// Dir, when set, receives a timestamped log file in addition to stderr.
	Dir    string `yaml:"dir"`
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("ctxlog: level %q: %w", s, err)
	}
	return l, nil
}

// New builds a logger writing to w. The returned closer releases the log file, if any.
func New(w io.Writer, config Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, nil, err
	}

	var closer io.Closer = nopCloser{}
	if config.Dir != "" {
		err := os.MkdirAll(config.Dir, 0755)
		if err != nil {
			return nil, nil, fmt.Errorf("ctxlog: create log dir: %w", err)
		}

		logFile, err := os.Create(filepath.Join(config.Dir, time.Now().Format("2006-01-02-15-04-05.log")))
		if err != nil {
			return nil, nil, fmt.Errorf("ctxlog: create log file: %w", err)
		}

		w = io.MultiWriter(w, logFile)
		closer = logFile
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(config.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("ctxlog: unknown format %q", config.Format)
	}

	return slog.New(handler), closer, nil
}

// Setup installs a stderr logger as the default and stores it in the context.
func Setup(ctx context.Context, name string, config Config) (context.Context, io.Closer, error) {
	logger, closer, err := New(os.Stderr, config)
	if err != nil {
		return ctx, nil, err
	}

	logger = logger.With("app", name)
	slog.SetDefault(logger)

	return Store(ctx, logger), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type ctxKey struct{}

var key ctxKey

func Store(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, key, log)
}

func Get(ctx context.Context) *slog.Logger {
	log, ok := ctx.Value(key).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return log
}

func Close(ctx context.Context, name string, closer io.Closer) error {
	logger := Get(ctx)
	err := closer.Close()
	if err != nil {
		logger.Error("failed to close", "closer", name, "error", err)
		return err
	}
	return nil
}

func With(ctx context.Context, kv ...any) context.Context {
	return Store(ctx, Get(ctx).With(kv...))
}
