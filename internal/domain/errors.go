package domain

import (
	"errors"
	"fmt"
)

// ErrorKind tags an error with the failure class surfaced to callers.
type ErrorKind string

const (
	KindPreconditionFailure ErrorKind = "PRECONDITION_FAILURE"
	KindValidation          ErrorKind = "VALIDATION_ERROR"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindConflict            ErrorKind = "CONFLICT"
	KindSolverTimeout       ErrorKind = "SOLVER_TIMEOUT"
	KindInfeasible          ErrorKind = "INFEASIBLE"
	KindCancelled           ErrorKind = "CANCELLED"
	KindInternal            ErrorKind = "INTERNAL_ERROR"
)

// Error is a tagged error carried across component boundaries. The API edge
// translates kinds to HTTP statuses; the worker uses them to decide between
// retry and terminal failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a tagged error with a plain message.
func E(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Ef builds a tagged error with a formatted message.
func Ef(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error while preserving it for errors.Is/As.
func Wrap(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf classifies any error. Untagged errors are internal failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
