// Package apperr defines the error taxonomy shared by the cart and order services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that map errors to transport codes.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation covers bad input shape or values (empty cart, quantity < 1).
	KindValidation
	// KindNotFound covers missing rows and rows not owned by the caller.
	KindNotFound
	// KindConflict covers uniqueness races. Cart upserts absorb these internally,
	// so the kind only surfaces from idempotency-key collisions.
	KindConflict
	// KindPersistence covers underlying storage failures.
	KindPersistence
)

// Error carries a kind alongside a message and an optional cause.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.err
}

// Validation returns a validation error with a formatted message.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error with a formatted message.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

// Conflict returns a conflict error with a formatted message.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a storage failure.
func Persistence(err error, msg string) *Error {
	return &Error{Kind: KindPersistence, msg: msg, err: err}
}

// KindOf extracts the kind from err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsPersistence reports whether err is a persistence error.
func IsPersistence(err error) bool { return KindOf(err) == KindPersistence }
