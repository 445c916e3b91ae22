// Package errors defines the typed errors handlers translate into HTTP responses.
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
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeTransient     Code = "TRANSIENT_ERROR"
)

// Metadata is how a code surfaces over HTTP. Unless ExposeMessage is set the
// client only ever sees PublicMessage.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
	ExposeMessage  bool
}

// client errors show their message; server-side ones hide it
func clientFault(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: details, ExposeMessage: true}
}

func serverFault(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: details, Retryable: true}
}

var catalog = map[Code]Metadata{
	CodeValidation:    clientFault(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:  clientFault(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:     clientFault(http.StatusForbidden, "access denied", false),
	CodeNotFound:      clientFault(http.StatusNotFound, "resource not found", false),
	CodeConflict:      clientFault(http.StatusConflict, "conflict detected", true),
	CodeStateConflict: clientFault(http.StatusUnprocessableEntity, "state transition disallowed", true),
	CodeIdempotency:   clientFault(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:     clientFault(http.StatusTooManyRequests, "rate limit exceeded", false),
	CodeInternal:      serverFault(http.StatusInternalServerError, "internal server error", false),
	CodeDependency:    serverFault(http.StatusServiceUnavailable, "dependency unavailable", true),
	CodeTransient:     serverFault(http.StatusServiceUnavailable, "temporarily unavailable, retry", true),
}

// MetadataFor treats unknown codes as internal.
func MetadataFor(code Code) Metadata {
	if meta, ok := catalog[code]; ok {
		return meta
	}
	return catalog[CodeInternal]
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
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err reachable through errors.Is and errors.As.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Accessors are nil-safe so As(err).Code() works on untyped errors.

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

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf reports CodeInternal for untyped errors.
func CodeOf(err error) Code {
	return As(err).Code()
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
