package offline

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueNotLoaded is returned when the queue is used before Load.
	ErrQueueNotLoaded = errors.New("offline queue not loaded")

	// ErrUnknownKind is returned when decoding a record with an unrecognised type.
	ErrUnknownKind = errors.New("unknown action kind")

	// ErrInvalidAction wraps validation failures of an action payload.
	ErrInvalidAction = errors.New("invalid action")
)

// PersistError reports a failed write of the queue to durable storage.
// The in-memory queue is left as it was before the operation.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist queue (%s): %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// ApplyError reports a record the remote applier did not confirm.
type ApplyError struct {
	RecordID string
	Kind     Kind
	Err      error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %s %s: %v", e.Kind, e.RecordID, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
