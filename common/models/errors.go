package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no record exists for the requested key
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a sequence for the (collection, color) pair already exists
	ErrConflict = errors.New("color sort sequence already exists for this collection")
)

// ValidationError describes a request that can never succeed as sent
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ComputationError is a failure of the similarity ranking.
// The requester retries by requesting the color again.
type ComputationError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("color sort computation failed (%s): %v", e.Op, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// NewComputationError wraps err as a retryable computation failure
func NewComputationError(op string, err error) *ComputationError {
	return &ComputationError{Op: op, Retryable: true, Err: err}
}
