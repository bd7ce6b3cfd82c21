// Package logging configures structured JSON logging with optional
// size-rotated file output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options controls where and how verbosely logs are written.
type Options struct {
	Level      slog.Level
	FilePath   string // empty means console only
	MaxSizeMB  int64
	MaxBackups int
	Console    bool
}

// DefaultOptions returns console-only logging at info level.
func DefaultOptions() Options {
	return Options{
		Level:      slog.LevelInfo,
		MaxSizeMB:  100,
		MaxBackups: 5,
		Console:    true,
	}
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a JSON logger writing to the configured destinations.
func New(opts Options) (*slog.Logger, error) {
	var writers []io.Writer

	if opts.Console {
		writers = append(writers, os.Stdout)
	}

	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err != nil {
			return nil, err
		}
		fw, err := NewRotatingWriter(opts.FilePath, opts.MaxSizeMB*1024*1024, opts.MaxBackups)
		if err != nil {
			return nil, err
		}
		writers = append(writers, fw)
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	var out io.Writer = writers[0]
	if len(writers) > 1 {
		out = io.MultiWriter(writers...)
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level})
	return slog.New(handler), nil
}

// SetDefault installs a logger built from opts as the process default.
func SetDefault(opts Options) error {
	logger, err := New(opts)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
