package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error classes. Concrete errors returned by fieldbase match one of these
// with errors.Is.
var (
	// ErrValidation marks a rejected config, response value or view. No
	// partial write happens when it is returned.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a reference to an entity that does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrIntegrity marks a storage-level uniqueness violation. The caller
	// should re-read and retry.
	ErrIntegrity = errors.New("integrity violation")
)

// Operation errors.
var (
	ErrInvalidID        = errors.New("invalid entity ID")
	ErrInvalidFieldType = errors.New("invalid field type")
	ErrClosed           = errors.New("engine is closed")
	ErrAlreadyOpen      = errors.New("backend is already open")
)

// ValidationError maps field paths ("data", "display_format",
// "options[1].label", ...) to human readable messages.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError with a single entry.
func NewValidationError(path, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{path: msg}}
}

// Validationf is NewValidationError with a formatted message.
func Validationf(path, format string, args ...any) *ValidationError {
	return NewValidationError(path, fmt.Sprintf(format, args...))
}

// Add records msg under path. Messages for the same path are joined.
func (e *ValidationError) Add(path, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if prev, ok := e.Fields[path]; ok {
		msg = prev + "; " + msg
	}
	e.Fields[path] = msg
}

// Empty reports whether no entries have been recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns e when it carries entries and nil otherwise, so accumulated
// errors can be returned directly.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Prefix returns a copy whose paths are nested under prefix.
func (e *ValidationError) Prefix(prefix string) *ValidationError {
	out := &ValidationError{Fields: make(map[string]string, len(e.Fields))}
	for k, v := range e.Fields {
		out.Fields[prefix+"."+k] = v
	}
	return out
}

func (e *ValidationError) Error() string {
	paths := make([]string, 0, len(e.Fields))
	for p := range e.Fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, p+": "+e.Fields[p])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// NotFound returns a *NotFoundError for entity/id.
func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IntegrityError wraps a storage constraint violation.
type IntegrityError struct {
	Constraint string
	Err        error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on %s: %v", e.Constraint, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrIntegrity) match.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}
