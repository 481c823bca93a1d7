package taskqueue

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an operation references a task id that does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrConflict marks an enqueue of an id whose stored task is already terminal.
	// Storage.Insert reports this as InsertRejected instead of returning the error.
	ErrConflict = errors.New("task already finished")

	// ErrInvalidTransition is returned for status changes the state machine forbids.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrStoreUnavailable wraps connectivity and transaction failures of the backing store.
	ErrStoreUnavailable = errors.New("task store unavailable")

	// ErrValidation is returned for malformed tasks, wire payloads and query arguments.
	ErrValidation = errors.New("validation failed")

	// ErrCorruptRecord is returned when a stored row lacks a required column.
	ErrCorruptRecord = fmt.Errorf("%w: corrupt task record", ErrValidation)

	// ErrQueuePaused is returned by Queue.Next while the queue is paused.
	ErrQueuePaused = errors.New("queue is paused")

	// ErrStorageNil is returned when a nil storage is provided
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrEmptyWorkerID is returned when a queue is built without a worker identity
	ErrEmptyWorkerID = errors.New("worker id cannot be empty")
)

// TransitionError describes a rejected status change. It matches
// ErrInvalidTransition with errors.Is.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid task status transition from '%s' to '%s'", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
