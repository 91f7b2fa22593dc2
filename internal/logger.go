package internal

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a text logger writing to out at the given level.
func NewLogger(out io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// OpenLogFile opens path for appending log messages, creating it if
// necessary.
func OpenLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}
