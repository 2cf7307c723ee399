package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"hospital-portal/internal/repository"
)

// NotFoundError reports a missing record addressed by id.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ValidationError carries one message per offending input field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// RenderingError wraps a failure to produce a document from a template.
type RenderingError struct {
	Template string
	Err      error
}

func (e *RenderingError) Error() string {
	return fmt.Sprintf("rendering %s: %v", e.Template, e.Err)
}

func (e *RenderingError) Unwrap() error {
	return e.Err
}

// ErrInvalidCredentials is returned by Login and Refresh for any bad credential.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUsernameTaken is returned by signups when the username already exists.
var ErrUsernameTaken = errors.New("username already exists")

// notFound converts a repository miss into a NotFoundError and passes other errors through.
func notFound(err error, entity string, id uint) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return err
}
