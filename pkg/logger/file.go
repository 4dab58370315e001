package logger

import (
	"fmt"
	"log"
	"os"
)

// FileLogger is a StandardLogger that owns the file it appends to.
type FileLogger struct {
	*StandardLogger
	f *os.File
}

// NewFileLogger opens path for appending, creating it with 0640 permissions.
func NewFileLogger(path string, level Level) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &FileLogger{
		StandardLogger: NewLeveledLogger(log.New(f, "", log.LstdFlags), level),
		f:              f,
	}, nil
}

// Close closes the underlying file. Later calls return nil.
func (l *FileLogger) Close() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

var _ Logger = (*FileLogger)(nil)
