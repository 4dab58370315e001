// Package logger provides the logging interface shared by every daylog
// component, with a console backend, a discarding backend and a recording
// backend for tests.
package logger

import (
	"fmt"
	"log"
	"sync"
)

// Level gates which messages a StandardLogger prints.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

// LevelFromVerbosity maps the number of -v flags to a Level. Zero flags
// keep warnings and errors only.
func LevelFromVerbosity(n int) Level {
	l := LevelWarning + Level(n)
	if l > LevelDebug {
		l = LevelDebug
	}
	return l
}

// Logger defines the interface for leveled logging across all daylog components.
type Logger interface {
	// Debug logs a diagnostic message (e.g., "drained 2 control markers").
	Debug(format string, args ...interface{})

	// Info logs an informational message (e.g., "sending digest to alice").
	Info(format string, args ...interface{})

	// Warning logs a warning message (e.g., "no users configured, retrying in 1m").
	Warning(format string, args ...interface{})

	// Error logs an error message (e.g., "send to alice failed: exit status 1").
	Error(format string, args ...interface{})

	// Close releases resources held by the logger.
	// Safe to call multiple times. Returns nil for loggers without resources.
	Close() error
}

// StandardLogger wraps the stdlib *log.Logger for console/file output.
type StandardLogger struct {
	logger *log.Logger
	level  Level
}

// NewStandardLogger creates a logger that prints every level through l.
func NewStandardLogger(l *log.Logger) *StandardLogger {
	return &StandardLogger{logger: l, level: LevelDebug}
}

// NewLeveledLogger creates a logger that drops messages above level.
func NewLeveledLogger(l *log.Logger, level Level) *StandardLogger {
	return &StandardLogger{logger: l, level: level}
}

// Debug logs a diagnostic message with [DEBUG] prefix.
func (s *StandardLogger) Debug(format string, args ...interface{}) {
	s.print(LevelDebug, "[DEBUG] ", format, args)
}

// Info logs an informational message with [INFO] prefix.
func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.print(LevelInfo, "[INFO] ", format, args)
}

// Warning logs a warning message with [WARNING] prefix.
func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.print(LevelWarning, "[WARNING] ", format, args)
}

// Error logs an error message with [ERROR] prefix.
func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.print(LevelError, "[ERROR] ", format, args)
}

func (s *StandardLogger) print(level Level, prefix, format string, args []interface{}) {
	if level > s.level {
		return
	}
	s.logger.Printf(prefix+format, args...)
}

// Close is a no-op for StandardLogger (no resources to release).
func (s *StandardLogger) Close() error {
	return nil
}

// StdLogger returns the wrapped *log.Logger for libraries that want one.
func (s *StandardLogger) StdLogger() *log.Logger {
	return s.logger
}

// NopLogger is a logger that discards all messages.
type NopLogger struct{}

// NewNopLogger creates a logger that discards all messages.
func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(format string, args ...interface{})   {}
func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}

// Close is a no-op.
func (n *NopLogger) Close() error {
	return nil
}

// Ensure implementations satisfy the Logger interface.
var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)

// MockLogger implements Logger for testing purposes.
// It records all log calls and may be shared between goroutines.
type MockLogger struct {
	mu           sync.Mutex
	DebugCalls   []string
	InfoCalls    []string
	WarningCalls []string
	ErrorCalls   []string
	CloseCalled  bool
}

// NewMockLogger creates a new MockLogger for testing.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) record(dst *[]string, format string, args []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
}

// Debug records the formatted message.
func (m *MockLogger) Debug(format string, args ...interface{}) {
	m.record(&m.DebugCalls, format, args)
}

// Info records the formatted message.
func (m *MockLogger) Info(format string, args ...interface{}) {
	m.record(&m.InfoCalls, format, args)
}

// Warning records the formatted message.
func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.record(&m.WarningCalls, format, args)
}

// Error records the formatted message.
func (m *MockLogger) Error(format string, args ...interface{}) {
	m.record(&m.ErrorCalls, format, args)
}

// Errors returns a copy of the recorded error messages.
func (m *MockLogger) Errors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ErrorCalls...)
}

// Warnings returns a copy of the recorded warning messages.
func (m *MockLogger) Warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.WarningCalls...)
}

// Close records that Close was called.
func (m *MockLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
	return nil
}

var _ Logger = (*MockLogger)(nil)
