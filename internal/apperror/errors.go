// Package apperror defines the error taxonomy returned by the API. Each error
// carries an HTTP status, a machine-readable code and a message that is safe
// to show to the caller. Internal causes are logged, never serialised.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a client-facing domain error.
type Error struct {
	Status   int    `json:"-"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Details  any    `json:"details,omitempty"`
	Internal error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Internal
}

// Is matches any *Error with the same code, so sentinel values declared by
// domain packages work with errors.Is even after WithDetails copies them.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// WithMessage returns a copy of e with a different message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e recording cause as the internal error.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Internal = cause
	return &cp
}

// Validation creates a 400 error.
func Validation(code, message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Message: message}
}

// NotFound creates a 404 error.
func NotFound(code, message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: code, Message: message}
}

// Conflict creates a 409 error.
func Conflict(code, message string) *Error {
	return &Error{Status: http.StatusConflict, Code: code, Message: message}
}

// TooManyRequests creates a 429 error.
func TooManyRequests(code, message string) *Error {
	return &Error{Status: http.StatusTooManyRequests, Code: code, Message: message}
}

// Internal creates a 500 error wrapping cause. The message is generic.
func Internal(cause error) *Error {
	return &Error{
		Status:   http.StatusInternalServerError,
		Code:     CodeInternal,
		Message:  "An unexpected error occurred",
		Internal: cause,
	}
}

// Common codes shared across packages.
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeInvalidJSON = "INVALID_JSON"
	CodeInternal    = "INTERNAL_ERROR"
)

// ErrInvalidJSON is returned when a request body cannot be decoded.
var ErrInvalidJSON = Validation(CodeInvalidJSON, "Request body is not valid JSON")

// As extracts an *Error from err. Errors that are not *Error become an
// internal error wrapping err.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
