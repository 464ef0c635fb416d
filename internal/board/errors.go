package board

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned before any local or remote mutation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound means the task or attachment is gone from the projection.
	ErrNotFound = errors.New("not found")

	// ErrSuperseded marks a response that arrived after a newer request for
	// the same task field started. The caller's state was already replaced
	// by the newer request; nothing to confirm or roll back.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// ValidationError rejects a mutation at pipeline entry, before the
// optimistic apply.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps an unreachable storage service. By the time it is
// returned the optimistic apply has been rolled back.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConflictError means the storage service rejected an optimistic write
// (constraint violation, storage-side permission check). Local state has
// been rolled back to the pre-mutation snapshot.
type ConflictError struct {
	Op  string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: rejected by storage: %v", e.Op, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }
