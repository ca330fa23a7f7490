// Package errors carries the coded application errors that the API maps to
// HTTP statuses and that workers use to decide whether to retry.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces outside the process.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func clientError(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: details}
}

func serverError(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: details, Retryable: true}
}

// Conflict family codes expose details so callers can tell a duplicate check
// from a lost version race or an occupied review slot.
var metadataByCode = map[Code]Metadata{
	CodeValidation:    clientError(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:  clientError(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:     clientError(http.StatusForbidden, "access denied", false),
	CodeNotFound:      clientError(http.StatusNotFound, "resource not found", false),
	CodeConflict:      clientError(http.StatusConflict, "conflict detected", true),
	CodeStateConflict: clientError(http.StatusUnprocessableEntity, "state transition disallowed", true),
	CodeIdempotency:   clientError(http.StatusConflict, "idempotency key reused", true),
	CodeInternal:      serverError(http.StatusInternalServerError, "internal server error", false),
	CodeDependency:    serverError(http.StatusServiceUnavailable, "dependency unavailable", true),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	meta, ok := metadataByCode[code]
	if !ok {
		return metadataByCode[CodeInternal]
	}
	return meta
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the client-visible details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.code) + ": " + e.message
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error with the same code, so New(CodeNotFound, "") can
// serve as a sentinel for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && t.code == e.code && t.message == ""
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	return As(err).codeOr("") == code
}

// Retryable reports whether a worker should try err again. Errors without a
// code are treated as internal failures and retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	typed := As(err)
	if typed == nil {
		return true
	}
	return MetadataFor(typed.code).Retryable
}

func (e *Error) codeOr(fallback Code) Code {
	if e == nil {
		return fallback
	}
	return e.code
}
