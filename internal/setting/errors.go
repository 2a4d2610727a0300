package setting

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile          = errors.New("setting file is empty")
	ErrNotMapping         = errors.New("setting document root must be a mapping")
	ErrNoContent          = errors.New("no contents declared")
	ErrUnknownChapterType = errors.New("cannot infer chapter fileType")
	ErrMultipleNavigation = errors.New("only one navigation content is allowed")
)

// ConfigError reports a setting file that cannot be turned into a Book.
type ConfigError struct {
	Path  string // setting file, when known
	Field string // dotted field, when known
	Err   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Field != "" && e.Path != "":
		return fmt.Sprintf("invalid setting %s in %s: %v", e.Field, e.Path, e.Err)
	case e.Field != "":
		return fmt.Sprintf("invalid setting %s: %v", e.Field, e.Err)
	case e.Path != "":
		return fmt.Sprintf("invalid setting file %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("invalid setting: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// MissingResourceError reports a referenced file that does not exist.
type MissingResourceError struct {
	Kind string // styleSheet, image, chapter, content
	Path string
}

func (e *MissingResourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s file not specified", e.Kind)
	}
	return fmt.Sprintf("%s file not found: %s", e.Kind, e.Path)
}

// NoContentError reports a setting file without any content entry.
type NoContentError struct {
	Path string
}

func (e *NoContentError) Error() string {
	if e.Path == "" {
		return ErrNoContent.Error()
	}
	return fmt.Sprintf("%v: %s", ErrNoContent, e.Path)
}

func (e *NoContentError) Unwrap() error {
	return ErrNoContent
}
