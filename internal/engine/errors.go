package engine

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindStateConflict ErrorKind = "state_conflict"
	KindNotFound      ErrorKind = "not_found"
	KindPersistence   ErrorKind = "persistence"
)

// Error carries the failure kind so the API layer can map it to a status
// code. Validation and state-conflict failures mean nothing was written;
// persistence failures mean the caller should re-read before retrying.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...interface{}) error {
	return &Error{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func persistenceError(err error, message string) error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

func kindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ValidationErrorf builds a validation-kind error for callers outside
// the package, such as the workflow factories.
func ValidationErrorf(format string, args ...interface{}) error {
	return validationError(format, args...)
}

func IsValidation(err error) bool    { return kindOf(err) == KindValidation }
func IsStateConflict(err error) bool { return kindOf(err) == KindStateConflict }
func IsNotFound(err error) bool      { return kindOf(err) == KindNotFound }
func IsPersistence(err error) bool   { return kindOf(err) == KindPersistence }
