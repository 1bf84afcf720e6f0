package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDocumentAbsent is returned by backends when no document has been stored yet.
var ErrDocumentAbsent = errors.New("document absent")

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Message string
	// Fields lists the missing or invalid fields by their JSON names.
	Fields []string
}

func (e ValidationError) Error() string { return e.Message }

// MissingFields builds a ValidationError naming every missing field.
func MissingFields(fields ...string) ValidationError {
	return ValidationError{
		Message: "Missing fields: " + strings.Join(fields, ", "),
		Fields:  append([]string(nil), fields...),
	}
}

// ConflictError reports a violated state precondition such as an unavailable
// bike or a duplicate unique field.
type ConflictError struct {
	Message string
}

func (e ConflictError) Error() string { return e.Message }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity Collection
	ID     int64
}

func (e NotFoundError) Error() string {
	return e.Entity.Singular() + " not found"
}

// StorageError wraps an I/O or decoding failure on the document.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage %s failed", e.Op)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e StorageError) Unwrap() error { return e.Err }
