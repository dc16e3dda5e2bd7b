// Package common provides shared utilities and interfaces used across the application.
// This includes the logging interface and its slog-backed implementation.
package common

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// StandardLogger is a concrete implementation of the Logger interface.
// It formats printf-style messages and hands them to a structured slog logger
// tagged with a request ID.
type StandardLogger struct {
	debug     bool   // Whether debug messages should be emitted
	requestID string // Request ID for tracing operations
	slog      *slog.Logger
}

// GenerateRequestID generates a request ID for operation tracing.
func GenerateRequestID() string {
	return "req_" + uuid.NewString()[:8]
}

// NewLogger creates a new text logger writing to stderr with the specified debug mode.
func NewLogger(debug bool) *StandardLogger {
	return NewLoggerWithOutput(os.Stderr, debug, false)
}

// NewLoggerWithOutput creates a logger writing to w. When jsonFormat is true
// records are emitted as JSON lines.
func NewLoggerWithOutput(w io.Writer, debug, jsonFormat bool) *StandardLogger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &StandardLogger{
		debug:     debug,
		requestID: GenerateRequestID(),
		slog:      slog.New(handler),
	}
}

// WithRequestID returns a copy of the logger tagged with requestID.
func (l *StandardLogger) WithRequestID(requestID string) *StandardLogger {
	if requestID == "" {
		requestID = GenerateRequestID()
	}
	return &StandardLogger{
		debug:     l.debug,
		requestID: requestID,
		slog:      l.slog,
	}
}

// RequestID returns the request ID attached to the logger.
func (l *StandardLogger) RequestID() string {
	return l.requestID
}

// Debug logs a message only when debug mode is enabled
func (l *StandardLogger) Debug(format string, args ...interface{}) {
	if l.debug {
		l.slog.Debug(fmt.Sprintf(format, args...), "request_id", l.requestID)
	}
}

// Info logs a message always
func (l *StandardLogger) Info(format string, args ...interface{}) {
	l.slog.Info(fmt.Sprintf(format, args...), "request_id", l.requestID)
}

// Error logs a failure
func (l *StandardLogger) Error(format string, args ...interface{}) {
	l.slog.Error(fmt.Sprintf(format, args...), "request_id", l.requestID)
}

// NopLogger discards everything. Useful as a default when no logger is supplied.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
