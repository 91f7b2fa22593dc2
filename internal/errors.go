package internal

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// ErrFileExists is returned when a file already exists at the target path and
// neither force nor skip was requested.
var ErrFileExists = errors.New("file already exists")

// ConfigLoadError is returned when the namespacing rules cannot be loaded.
type ConfigLoadError struct {
	Source string
	Err    error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("loading namespacing rules from %s: %v", e.Source, e.Err)
}

func (e *ConfigLoadError) Unwrap() error { return e.Err }

// ParseError is returned when a document in a manifest stream is not valid
// YAML or is not a mapping. Index is the zero-based position of the document
// in its stream and Line, when known, the line of the stream at which the
// problem was found.
type ParseError struct {
	Index int
	Line  int
	Err   error
}

func (e *ParseError) Error() string {
	msg := e.Err.Error()
	var yamlErr yaml.Error
	if errors.As(e.Err, &yamlErr) {
		msg = yamlErr.GetMessage()
	}
	if e.Line > 0 {
		return fmt.Sprintf("parsing document %d at line %d: %s", e.Index, e.Line, msg)
	}
	return fmt.Sprintf("parsing document %d: %s", e.Index, msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingFieldError is returned when a manifest lacks a field required to
// classify it.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %s", e.Field)
}

// FormatError is returned when a manifest field is present but malformed.
type FormatError struct {
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed field %s: %s", e.Field, e.Reason)
}
