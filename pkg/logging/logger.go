// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seckey.
//
// go-seckey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package logging provides the slog-backed logger shared by the key store,
// its backends and the command line tool.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configure a Logger.
type Options struct {
	// Level is one of debug, info, warn or error. Defaults to info.
	Level string

	// Format is text or json. Defaults to text.
	Format string

	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer
}

// Logger wraps a slog.Logger with printf style helpers.
type Logger struct {
	logger *slog.Logger
	debug  bool
}

// New creates a logger from opts.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		handler = slog.NewTextHandler(w, handlerOpts)
	case FormatJSON:
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	return &Logger{
		logger: slog.New(handler),
		debug:  level <= slog.LevelDebug,
	}, nil
}

// NewLogger creates a text logger on stderr at info, or debug when debug is set.
func NewLogger(debug bool) *Logger {
	level := "info"
	if debug {
		level = "debug"
	}
	l, _ := New(Options{Level: level})
	return l
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q", s)
	}
}

// With returns a logger that adds the given attributes to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		logger: l.logger.With(args...),
		debug:  l.debug,
	}
}

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// Info logs an informational message
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Infof logs a formatted informational message
func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	if l.debug {
		l.logger.Debug(msg, args...)
	}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) {
	if l.debug {
		l.logger.Debug(fmt.Sprintf(format, args...))
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// Error logs an error
func (l *Logger) Error(err error, args ...any) {
	l.logger.Error(err.Error(), args...)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// MaybeError logs an error if it's not nil
func (l *Logger) MaybeError(err error) {
	if err != nil {
		l.logger.Error(err.Error())
	}
}

// DefaultLogger returns a default logger instance with debug=false
func DefaultLogger() *Logger {
	return NewLogger(false)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
