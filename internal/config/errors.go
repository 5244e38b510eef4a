package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceUnavailable reports a missing optional capability, such as a
	// parser for a file extension or the dotenv loader.
	ErrSourceUnavailable = errors.New("configuration source unavailable")

	// ErrFileUnreadable reports a candidate file that exists but cannot be read.
	ErrFileUnreadable = errors.New("configuration file unreadable")

	// ErrParse reports a candidate file whose contents cannot be decoded.
	ErrParse = errors.New("configuration file cannot be parsed")

	// ErrValidationFailed is wrapped by every ValidationErrors value.
	ErrValidationFailed = errors.New("configuration validation failed")

	// ErrUnknownConfigTarget reports an unknown section or field name.
	ErrUnknownConfigTarget = errors.New("unknown configuration target")
)

// ValidationError describes one violated constraint.
type ValidationError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors aggregates every violation found in a tree.
type ValidationErrors []ValidationError

// Error renders one violation per line.
func (ve ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrValidationFailed.Error())
	sb.WriteString(":")
	for _, e := range ve {
		sb.WriteString("\n- ")
		sb.WriteString(e.Error())
	}
	return sb.String()
}

// Unwrap lets errors.Is match ErrValidationFailed.
func (ve ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// UnknownTargetError is returned when a section or key does not exist.
type UnknownTargetError struct {
	Section string
	Key     string
}

func (e *UnknownTargetError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: section %q", ErrUnknownConfigTarget, e.Section)
	}
	return fmt.Sprintf("%s: %s.%s", ErrUnknownConfigTarget, e.Section, e.Key)
}

func (e *UnknownTargetError) Unwrap() error {
	return ErrUnknownConfigTarget
}
