// Package common defines the error taxonomy shared by repositories, services
// and the transport layer. Callers match kinds with errors.Is against the
// sentinel values below.
package common

import (
	"errors"
	"fmt"
)

var (
	// Kind sentinels.
	ErrorInvalidArgument = errors.New("invalid argument")
	ErrorUnauthorized    = errors.New("unauthorized")
	ErrorNotFound        = errors.New("not found")
	ErrorConflict        = errors.New("conflict")
	ErrorInternal        = errors.New("internal error")
)

// Error is a typed failure carrying a kind, a message safe to show to the
// caller and an optional cause that is never shown.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func InvalidArgument(msg string) *Error { return newError(ErrorInvalidArgument, msg, nil) }

func Unauthorized(msg string) *Error { return newError(ErrorUnauthorized, msg, nil) }

func NotFound(msg string) *Error { return newError(ErrorNotFound, msg, nil) }

func Conflict(msg string) *Error { return newError(ErrorConflict, msg, nil) }

// Internal wraps cause; the cause stays out of Message.
func Internal(msg string, cause error) *Error { return newError(ErrorInternal, msg, cause) }

// Message returns the caller-facing message of err. Errors that are not
// *Error yield the text of their kind, or a generic internal message.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	for _, kind := range []error{ErrorInvalidArgument, ErrorUnauthorized, ErrorNotFound, ErrorConflict} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ErrorInternal.Error()
}
