// services/errors.go - Error kinds surfaced to the HTTP layer
package services

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to status codes with errors.Is.
var (
	ErrInvalid            = errors.New("invalid request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// ErrContentUnavailable is returned when the content store cannot satisfy a draw.
var ErrContentUnavailable = errors.New("not enough quiz content")

// Error is a client-facing failure: Kind classifies it, Message is safe to show.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) error {
	return newError(ErrInvalid, format, args...)
}

func forbidden(format string, args ...any) error {
	return newError(ErrForbidden, format, args...)
}

func notFound(format string, args ...any) error {
	return newError(ErrNotFound, format, args...)
}

func preconditionFailed(format string, args ...any) error {
	return newError(ErrPreconditionFailed, format, args...)
}
