// Package apperrors defines the application error taxonomy. Every failure
// surfaced by the access-control and assignment core is one of these types;
// authorization failures always propagate, they are never downgraded to a
// default-allow.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an application error.
type ErrorType string

const (
	ErrorTypeAuthorization ErrorType = "authorization_denied"
	ErrorTypeValidation    ErrorType = "validation_failed"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeUnavailable   ErrorType = "dependency_unavailable"
)

// AppError carries the error type, a caller-facing message, and the
// HTTP-equivalent status code the transport layer should map it to.
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAuthorizationError reports that the user lacks the required role or
// relationship. Surfaced as a 403-equivalent and never retried.
func NewAuthorizationError(message string) *AppError {
	return &AppError{Type: ErrorTypeAuthorization, Message: message, Code: http.StatusForbidden}
}

// NewValidationError reports bad input or a rejected no-op.
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Code: http.StatusBadRequest}
}

// NewConflictError reports a unique-constraint violation such as a duplicate
// assignment, with a descriptive message rather than a 500.
func NewConflictError(message string) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: message, Code: http.StatusConflict}
}

// NewNotFoundError reports a missing row the caller referenced directly.
func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message, Code: http.StatusNotFound}
}

// NewUnavailableError wraps a store or cache failure. Authorization paths
// treat this as a denial; plain reads surface it as a 503-equivalent.
func NewUnavailableError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeUnavailable, Message: message, Code: http.StatusServiceUnavailable, Err: err}
}

// As extracts an AppError from err, or nil.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func isType(err error, t ErrorType) bool {
	appErr := As(err)
	return appErr != nil && appErr.Type == t
}

func IsAuthorization(err error) bool { return isType(err, ErrorTypeAuthorization) }
func IsValidation(err error) bool    { return isType(err, ErrorTypeValidation) }
func IsConflict(err error) bool      { return isType(err, ErrorTypeConflict) }
func IsNotFound(err error) bool      { return isType(err, ErrorTypeNotFound) }
func IsUnavailable(err error) bool   { return isType(err, ErrorTypeUnavailable) }
