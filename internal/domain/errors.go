package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an unknown job or backup id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition reports an operation that does not apply to the
	// current state, such as resuming a job that is not paused.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConcurrencyConflict reports a duplicate execution attempt for a
	// job that already has one in flight.
	ErrConcurrencyConflict = errors.New("execution already in flight")
)

// AdapterError wraps a failure from an external collaborator (database dump,
// object storage, notifier). It carries the operation that failed.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

func NewAdapterError(op string, err error) *AdapterError {
	return &AdapterError{Op: op, Err: err}
}
