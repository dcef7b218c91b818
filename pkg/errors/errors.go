package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies configuration errors
type ErrorType string

const (
	ErrorTypeInternal    ErrorType = "internal"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeUnavailable ErrorType = "unavailable"
	ErrorTypeBadRequest  ErrorType = "bad_request"
	ErrorTypeForbidden   ErrorType = "forbidden"

	// ErrorTypeCoercion marks a value that cannot be converted to the requested type
	ErrorTypeCoercion ErrorType = "coercion"
	// ErrorTypeSelection marks a failure while choosing the client configuration of a request
	ErrorTypeSelection ErrorType = "selection_failed"
)

// Error represents a structured error with additional context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]any
}

// NewError creates a new structured error
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewCoercionError reports that raw could not be converted to target
func NewCoercionError(target string, raw any) *Error {
	return NewError(ErrorTypeCoercion, fmt.Sprintf("cannot convert %T to %s", raw, target)).
		WithDetail("target", target).
		WithDetail("value", raw)
}

// NewSelectionError wraps a registry failure met while selecting a configuration
func NewSelectionError(cause error) *Error {
	return NewError(ErrorTypeSelection, "failed to load OIDC client configuration").WithCause(cause)
}

// WithCause adds the underlying cause to the error
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// HTTPStatusCode returns the appropriate HTTP status code for the error type
func (e *Error) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeNotFound:
		return 404
	case ErrorTypeForbidden:
		return 403
	case ErrorTypeBadRequest, ErrorTypeCoercion:
		return 400
	case ErrorTypeUnavailable:
		return 503
	default:
		return 500
	}
}

// IsType reports whether err, or any error it wraps, is an *Error of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	for err != nil {
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsCoercion reports whether err is a coercion failure
func IsCoercion(err error) bool {
	return IsType(err, ErrorTypeCoercion)
}

// IsSelection reports whether err is a configuration selection failure
func IsSelection(err error) bool {
	return IsType(err, ErrorTypeSelection)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// As is errors.As, re-exported so callers need a single errors import
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
