package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("Validation Error")
	ErrConflict    = errors.New("conflict")
	ErrConfig      = errors.New("configuration error")
	ErrUnavailable = errors.New("store unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation on one column of a resource,
// e.g. Conflict("user", "email", "a@b.c"). HTTP handlers map this to 409.
func Conflict(resource, field, value string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Field:   field,
	}
}

// Config reports a missing or malformed configuration value. It is fatal at startup.
func Config(field, message string) *AppError {
	return &AppError{
		Err:     ErrConfig,
		Message: message,
		Field:   field,
	}
}

// Unavailable reports that a store could not be reached. The cause stays in
// the chain so errors.Is works for both ErrUnavailable and the driver error.
func Unavailable(store string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUnavailable, cause),
		Message: fmt.Sprintf("%s store is unavailable: %v", store, cause),
	}
}
