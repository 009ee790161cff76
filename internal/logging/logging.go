// Package logging builds the slog logger shared by the git runner and the API client.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 5
	maxLogBackups = 3
	maxLogAgeDays = 14
)

type Options struct {
	// Verbose forces debug level.
	Verbose bool
	Level   string
	// File, when set, receives JSON records through a rotating writer
	// instead of Stderr.
	File   string
	Stderr io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns the logger and a closer that flushes the log file, if any.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := parseLogLevel(opts.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOptions := &slog.HandlerOptions{Level: level}

	logPath := strings.TrimSpace(opts.File)
	if logPath == "" {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		return slog.New(slog.NewTextHandler(stderr, handlerOptions)), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, handlerOptions)), nopCloser{}, err
	}

	writer := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxLogSizeMB,
		MaxBackups: maxLogBackups,
		MaxAge:     maxLogAgeDays,
	}
	return slog.New(slog.NewJSONHandler(writer, handlerOptions)), writer, nil
}

// parseLogLevel defaults to warn so a normal run prints nothing but its own output.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
