// Package domainerrors provides coded errors for the service and handler
// boundary. Stores return sentinel errors (pkg/platform/sentinel); services
// translate them into coded errors here so handlers can map codes to HTTP
// statuses without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport mapping and caller policy.
type Code string

const (
	CodeValidation        Code = "validation"
	CodePermission        Code = "permission"
	CodeConflict          Code = "conflict"
	CodeExpiredOrConsumed Code = "expired_or_consumed"
	CodeReplayDetected    Code = "replay_detected"
	CodePathNotAllowed    Code = "path_not_allowed"
	CodeIntegrity         Code = "integrity"
	CodeRateLimited       Code = "rate_limited"
	CodeNotFound          Code = "not_found"
	CodeUnauthorized      Code = "unauthorized"
	CodeTimeout           Code = "timeout"
	CodeInternal          Code = "internal"
)

// Error carries a code, a caller-safe message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a caller-safe message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted caller-safe message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when err carries
// none. Nil errors have no code and return "".
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
