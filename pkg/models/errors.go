package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure for handling and monitoring.
type ErrorCode string

const (
	// ErrCodeNotFound indicates an unknown tenant, job, or tool name.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeValidation indicates tool arguments failed schema validation.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeTransport indicates a chat transport delivery failure.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"

	// ErrCodeUpstreamRun indicates the model run failed, was cancelled,
	// or exceeded the tool-round ceiling.
	ErrCodeUpstreamRun ErrorCode = "UPSTREAM_RUN_FAILURE"
)

// Error is a structured error carrying a code, a human-readable message,
// and an optional wrapped cause.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNotFound creates a NOT_FOUND error.
func ErrNotFound(msg string, err error) *Error {
	return &Error{Code: ErrCodeNotFound, Message: msg, Err: err}
}

// ErrValidation creates a VALIDATION_ERROR error.
func ErrValidation(msg string, err error) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg, Err: err}
}

// ErrTransport creates a TRANSPORT_ERROR error.
func ErrTransport(msg string, err error) *Error {
	return &Error{Code: ErrCodeTransport, Message: msg, Err: err}
}

// ErrUpstreamRun creates an UPSTREAM_RUN_FAILURE error.
func ErrUpstreamRun(msg string, err error) *Error {
	return &Error{Code: ErrCodeUpstreamRun, Message: msg, Err: err}
}

// HasCode reports whether err (or any error it wraps) carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeNotFound)
}

// IsValidation reports whether err carries the VALIDATION_ERROR code.
func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}
