package errors

import (
	"errors"
	"fmt"
)

// Class categorizes how a coordination-core failure is handled.
type Class string

const (
	// ClassTransient failures are retried internally with backoff.
	ClassTransient Class = "TRANSIENT"
	// ClassOperatorVisible failures are surfaced with no auto-retry; the
	// operator re-triggers the command.
	ClassOperatorVisible Class = "OPERATOR_VISIBLE"
	// ClassDegraded failures are absorbed and logged because a safe local
	// fallback already applied.
	ClassDegraded Class = "DEGRADED"
	// ClassFatal failures abort the operation with no fallback.
	ClassFatal Class = "FATAL"
	// ClassCleanup failures do not roll back an otherwise-successful
	// operation; they are flagged for manual follow-up.
	ClassCleanup Class = "CLEANUP"
)

// CoordError is an application error carrying its handling class and the
// operation it interrupted.
type CoordError struct {
	Class   Class
	Op      string
	Message string
	Cause   error
}

// Error implements error interface
func (e *CoordError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s (caused by: %v)", e.Class, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Class, e.Op, e.Message)
}

// Unwrap returns the underlying error
func (e *CoordError) Unwrap() error {
	return e.Cause
}

// New creates a new coordination error
func New(class Class, op, message string) *CoordError {
	return &CoordError{Class: class, Op: op, Message: message}
}

// Wrap wraps an existing error with a coordination error
func Wrap(err error, class Class, op, message string) *CoordError {
	return &CoordError{Class: class, Op: op, Message: message, Cause: err}
}

// NewTransient creates a transient-retryable error
func NewTransient(op, message string) *CoordError {
	return New(ClassTransient, op, message)
}

// NewOperatorVisible creates an operator-visible blocking error
func NewOperatorVisible(op, message string) *CoordError {
	return New(ClassOperatorVisible, op, message)
}

// NewFatal creates a fatal-for-the-operation error
func NewFatal(op, message string) *CoordError {
	return New(ClassFatal, op, message)
}

// ClassOf extracts the handling class from an error chain; unknown errors
// default to fatal.
func ClassOf(err error) Class {
	var ce *CoordError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ClassFatal
}

// IsClass reports whether the error chain carries the given class.
func IsClass(err error, class Class) bool {
	var ce *CoordError
	return errors.As(err, &ce) && ce.Class == class
}
