// Package clierr defines the structured errors shared by the board engine,
// the HTTP client and the CLI. Errors carry a machine-readable code, a
// human-readable message and optional details.
package clierr

import (
	"errors"
	"fmt"
	"strconv"
)

// Error code constants. Uppercase, underscore-separated, stable across minor versions.
const (
	Conflict         = "CONFLICT"
	NotFound         = "NOT_FOUND"
	TaskNotFound     = "TASK_NOT_FOUND"
	BoardNotFound    = "BOARD_NOT_FOUND"
	EntryNotFound    = "ENTRY_NOT_FOUND"
	TransientNetwork = "TRANSIENT_NETWORK"
	InvalidInput     = "INVALID_INPUT"
	InvalidStatus    = "INVALID_STATUS"
	InvalidPriority  = "INVALID_PRIORITY"
	InvalidDate      = "INVALID_DATE"
	InvalidTaskID    = "INVALID_TASK_ID"
	InvalidGroupBy   = "INVALID_GROUP_BY"
	Unauthorized     = "UNAUTHORIZED"
	WIPLimitExceeded = "WIP_LIMIT_EXCEEDED"
	NoChanges        = "NO_CHANGES"
	ConfirmationReq  = "CONFIRMATION_REQUIRED"
	InternalError    = "INTERNAL_ERROR"
)

// Class groups codes into the failure classes callers branch on.
type Class int

const (
	// ClassOther is anything that is not one of the classes below.
	ClassOther Class = iota
	// ClassConflict means the request collides with current server state.
	ClassConflict
	// ClassNotFound means the referenced entity no longer exists.
	ClassNotFound
	// ClassTransient means the request did not reach a conclusive answer.
	ClassTransient
)

func (c Class) String() string {
	switch c {
	case ClassConflict:
		return "conflict"
	case ClassNotFound:
		return "not_found"
	case ClassTransient:
		return "transient"
	default:
		return "other"
	}
}

// Error represents a structured error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// New creates an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with the given code that unwraps to cause.
func Wrap(code string, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// WithDetails returns the error with the given details map attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Class reports which failure class the code belongs to.
func (e *Error) Class() Class {
	switch e.Code {
	case Conflict, WIPLimitExceeded:
		return ClassConflict
	case NotFound, TaskNotFound, BoardNotFound, EntryNotFound:
		return ClassNotFound
	case TransientNetwork:
		return ClassTransient
	default:
		return ClassOther
	}
}

// ExitCode returns 2 for InternalError, 1 for all others.
func (e *Error) ExitCode() int {
	if e.Code == InternalError {
		return 2 //nolint:mnd // exit code 2 for internal errors
	}
	return 1
}

// Kind classifies err. Errors that are not an *Error are ClassOther.
func Kind(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class()
	}
	return ClassOther
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConflict reports whether err is a conflict.
func IsConflict(err error) bool { return Kind(err) == ClassConflict }

// IsNotFound reports whether err is a not-found.
func IsNotFound(err error) bool { return Kind(err) == ClassNotFound }

// IsTransient reports whether err is a transient network failure.
func IsTransient(err error) bool { return Kind(err) == ClassTransient }

// SilentError signals an exit code without additional output.
// Used by batch operations where results are already written to stdout.
type SilentError struct {
	Code int
}

// Error implements the error interface.
func (e *SilentError) Error() string { return "exit " + strconv.Itoa(e.Code) }
