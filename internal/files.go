package internal

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileAction is what FileWriter did with a file.
type FileAction string

const (
	FileCreated   FileAction = "create"
	FileIdentical FileAction = "identical"
	FileSkipped   FileAction = "skip"
	FileForced    FileAction = "force"
)

// FileWriter creates files beneath a root directory.
type FileWriter struct {
	// Root is the directory relative paths are resolved against.
	Root string
	// Force overwrites existing files.
	Force bool
	// Skip leaves existing files alone. It takes precedence over Force.
	Skip bool

	Logger  *slog.Logger
	Metrics *metrics
}

// Exists reports whether a file exists at the slash-separated relative path.
func (w *FileWriter) Exists(relPath string) (bool, error) {
	_, err := os.Stat(w.path(relPath))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Read returns the content of the file at the slash-separated relative path.
func (w *FileWriter) Read(relPath string) ([]byte, error) {
	return os.ReadFile(w.path(relPath))
}

// Create writes content to the slash-separated relative path, creating
// parent directories as required. If a file already exists with different
// content then it is left alone when skipping, overwritten when forcing, and
// ErrFileExists is returned otherwise.
func (w *FileWriter) Create(relPath string, content []byte) (FileAction, error) {
	action, err := w.create(relPath, content)
	if err != nil {
		w.logger().Error("writing file", "path", relPath, "error", err)
		return "", err
	}
	if action == FileSkipped {
		w.logger().Warn("skipped existing file", "path", relPath)
	} else {
		w.logger().Info("wrote file", "path", relPath, "action", action)
	}
	if w.Metrics != nil {
		w.Metrics.fileActions.WithLabelValues(string(action)).Inc()
	}
	return action, nil
}

func (w *FileWriter) create(relPath string, content []byte) (FileAction, error) {
	path := w.path(relPath)
	action := FileCreated
	existing, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return "", err
	case bytes.Equal(existing, content):
		return FileIdentical, nil
	case w.Skip:
		return FileSkipped, nil
	case w.Force:
		action = FileForced
	default:
		return "", fmt.Errorf("%s: %w", relPath, ErrFileExists)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return action, nil
}

func (w *FileWriter) path(relPath string) string {
	return filepath.Join(w.Root, filepath.FromSlash(relPath))
}

func (w *FileWriter) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return w.Logger
}
