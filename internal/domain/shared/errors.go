// Package shared contains common domain types and errors used across all
// domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyValue   = errors.New("value cannot be empty")
	ErrInvalidDate  = errors.New("invalid date")

	// Query scope errors
	// ErrScopeEmpty means the search resolver matched no sessions at all.
	// It is distinct from a store failure, never trips the resolver's
	// breaker, and maps to "not found" at the edge.
	ErrScopeEmpty = errors.New("query scope is empty")

	// External store errors
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTimeout          = errors.New("operation timeout")

	// Mirror consistency errors
	// ErrParentMissing means a child row referenced a parent node that has
	// not been mirrored yet. Sync stages fail loudly on this instead of
	// creating dangling edges.
	ErrParentMissing = errors.New("parent node not mirrored")
)

// StoreError describes a failure inside one of the backing stores.
// Store identifies the technology ("postgres", "neo4j", "redis",
// "elasticsearch", "mongodb"), Op names the operation that failed.
type StoreError struct {
	Store string
	Op    string
	Err   error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Store, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err with store identity and operation name.
func NewStoreError(store, op string, err error) *StoreError {
	return &StoreError{Store: store, Op: op, Err: err}
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// ValidationError reports a missing or malformed request field.
// It is reported to the caller immediately; no store is touched.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: field %q: %s", e.Field, e.Message)
}

// Is makes ValidationError match ErrValidation via errors.Is().
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// MissingField returns a ValidationError for a required field.
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "required field is missing"}
}
