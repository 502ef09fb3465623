// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the proxy's structured logger.
//
// A foreground proxy logs to stderr: slog.TextHandler when stderr is a
// terminal, slog.JSONHandler otherwise (systemd journal, log shippers).
// A daemonized proxy has no stderr worth writing to, so it logs JSON to
// a size-rotated file through lumberjack.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults for file logging.
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 5
	DefaultMaxAgeDays = 30
)

// Options configures New.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Empty means info.
	Level string

	// File is the log file path. Empty logs to stderr.
	File string

	// MaxSizeMB, MaxBackups and MaxAgeDays control rotation of File.
	// Zero values select the package defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ParseLevel converts a level name into a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (supported: debug, info, warn, error)", name)
	}
}

// New creates a logger per options. The returned Closer flushes and
// closes the log file; it is a no-op when logging to stderr.
func New(options Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(options.Level)
	if err != nil {
		return nil, nil, err
	}
	handlerOptions := &slog.HandlerOptions{Level: level}

	if options.File == "" {
		var handler slog.Handler
		if term.IsTerminal(int(os.Stderr.Fd())) {
			handler = slog.NewTextHandler(os.Stderr, handlerOptions)
		} else {
			handler = slog.NewJSONHandler(os.Stderr, handlerOptions)
		}
		return slog.New(handler), nopCloser{}, nil
	}

	rotator := &lumberjack.Logger{
		Filename:   options.File,
		MaxSize:    valueOr(options.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valueOr(options.MaxBackups, DefaultMaxBackups),
		MaxAge:     valueOr(options.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(rotator, handlerOptions)), rotator, nil
}

func valueOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
