// Package apperror defines the domain error kinds shared by every layer.
//
// Services return *AppError values wrapping one of the sentinel errors below.
// Handlers use errors.Is on the sentinel to pick an HTTP status, and the
// Message as the user-visible feedback.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrProtected       = errors.New("protected reference")
	ErrUnauthenticated = errors.New("unauthenticated")
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

func Conflict(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %v", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Protected reports that a row cannot be deleted while other rows still
// reference it, e.g. a category that posts are filed under.
func Protected(resource string, id any, referencedBy string) *AppError {
	return &AppError{
		Err:     ErrProtected,
		Message: fmt.Sprintf("%s %v is still referenced by %s and cannot be deleted", resource, id, referencedBy),
	}
}

// Unauthenticated is returned for bad credentials and for gated operations
// attempted without a session. The message never says which credential was wrong.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}
