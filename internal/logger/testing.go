package logger

import (
	"io"
	"log/slog"
)

// NewTestLogger returns a module logger writing text records to w, for tests.
func NewTestLogger(w io.Writer, level LogLevel) Logger {
	slogLevel := parseLogLevel(string(level))
	return &moduleLogger{
		logger: slog.New(newTextHandler(w, slogLevel)),
		level:  slogLevel,
	}
}
