// Package errors is the typed error vocabulary shared by services and the
// HTTP layer. Each Code maps to a status, a public message and whether the
// caller may see details.
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

	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeOverpayment       Code = "OVERPAYMENT_REJECTED"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	hideDetails = false
	showDetails = true
)

func meta(status int, public string, details bool) Metadata {
	return Metadata{
		HTTPStatus:     status,
		Retryable:      status >= http.StatusInternalServerError,
		PublicMessage:  public,
		DetailsAllowed: details,
	}
}

var catalog = map[Code]Metadata{
	CodeValidation:        meta(http.StatusBadRequest, "validation failed", showDetails),
	CodeUnauthorized:      meta(http.StatusUnauthorized, "authentication required", hideDetails),
	CodeForbidden:         meta(http.StatusForbidden, "access denied", hideDetails),
	CodeNotFound:          meta(http.StatusNotFound, "resource not found", hideDetails),
	CodeConflict:          meta(http.StatusConflict, "conflict detected", hideDetails),
	CodeStateConflict:     meta(http.StatusUnprocessableEntity, "state transition disallowed", showDetails),
	CodeInsufficientStock: meta(http.StatusConflict, "insufficient stock", showDetails),
	CodeOverpayment:       meta(http.StatusUnprocessableEntity, "payment exceeds remaining balance", showDetails),
	CodeIdempotency:       meta(http.StatusConflict, "idempotency key reused", showDetails),
	CodeRateLimit:         meta(http.StatusTooManyRequests, "rate limit exceeded", hideDetails),
	CodeInternal:          meta(http.StatusInternalServerError, "internal server error", hideDetails),
	CodeDependency:        meta(http.StatusServiceUnavailable, "dependency unavailable", showDetails),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := catalog[code]; ok {
		return m
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

// Wrap keeps err reachable through errors.Is/As.
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
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		typed := As(err)
		if typed == nil {
			return false
		}
		if typed.code == code {
			return true
		}
		err = typed.cause
	}
	return false
}
