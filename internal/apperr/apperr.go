// Package apperr defines the typed errors shared by every feature package.
// Handlers map codes to HTTP statuses; the websocket layer maps them to
// error events. Causes are kept for logs and never serialized to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeQuotaExceeded   Code = "QUOTA_EXCEEDED"
	CodeInternal        Code = "INTERNAL"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Unauthenticated(msg string) *Error { return New(CodeUnauthenticated, msg) }
func Forbidden(msg string) *Error       { return New(CodeForbidden, msg) }
func InvalidArg(msg string) *Error      { return New(CodeInvalidArgument, msg) }
func NotFound(msg string) *Error        { return New(CodeNotFound, msg) }
func QuotaExceeded(msg string) *Error   { return New(CodeQuotaExceeded, msg) }

// Internal wraps a collaborator failure. The message is safe to show to a
// client; the cause is not.
func Internal(cause error) *Error {
	return Wrap(CodeInternal, "internal error", cause)
}

// CodeOf extracts the code from err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// PublicMessage returns the client-facing message for err. Untyped errors
// collapse to a generic message so internals never leak.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != CodeInternal {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps an error to the status a REST handler should return.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
