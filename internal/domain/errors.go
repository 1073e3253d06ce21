package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the ledger core
type ErrorKind string

const (
	KindNotFound   ErrorKind = "NotFound"
	KindValidation ErrorKind = "ValidationError"
	KindConflict   ErrorKind = "ConflictError"
	KindStore      ErrorKind = "StoreError"
)

// Sentinel errors for errors.Is checks. Every *Error matches the sentinel of its kind.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrStore      = &Error{Kind: KindStore}
)

// Error is a classified ledger error. Detail is safe to show to API clients;
// Err keeps the underlying cause (driver error etc.) for logs.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// for every NotFound regardless of detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NotFound reports a missing stock, transaction or dividend
func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

// Validation reports input that violates a ledger invariant
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness or referential conflict
func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Detail: fmt.Sprintf(format, args...)}
}

// Store wraps a persistence failure. A nil err yields nil so callers can write
// `return domain.Store(err, "...")` directly after a driver call.
func Store(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}
	return &Error{Kind: KindStore, Detail: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindStore for unclassified errors
func KindOf(err error) ErrorKind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindStore
}

// DetailOf returns the client-facing message of err
func DetailOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) && classified.Detail != "" {
		return classified.Detail
	}
	return err.Error()
}
