// Package apperr defines the error kinds shared by services and the HTTP
// boundary. Services wrap one of the sentinels; handlers map them to status
// codes with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input rejected before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing resource the caller is allowed to know about.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks a caller lacking ownership or role. Non-admin callers
	// also receive it for resources that do not exist.
	ErrForbidden = errors.New("forbidden")

	// ErrInvariant marks an operation that would break a ledger invariant.
	ErrInvariant = errors.New("invariant violated")

	// ErrPersistence marks a store failure; the mutation did not happen.
	ErrPersistence = errors.New("persistence failure")

	// ErrUnauthenticated marks a request without a usable bearer token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrConflict marks a uniqueness violation such as a taken email.
	ErrConflict = errors.New("conflict")
)

// Error pairs a kind sentinel with the message shown to clients.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

// Is reports whether target is the kind sentinel.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds an ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden builds the generic ErrForbidden returned to denied callers.
func Forbidden() error {
	return &Error{Kind: ErrForbidden, Message: "Forbidden"}
}

// Invariant builds an ErrInvariant with a fixed message.
func Invariant(message string) error {
	return &Error{Kind: ErrInvariant, Message: message}
}

// Conflict builds an ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// Unauthenticated builds an ErrUnauthenticated with a message.
func Unauthenticated(message string) error {
	return &Error{Kind: ErrUnauthenticated, Message: message}
}

// Persistence wraps a store error. A nil err yields nil.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: ErrPersistence, Message: "persistence failure", Err: err}
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
