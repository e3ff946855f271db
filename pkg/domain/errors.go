package domain

import (
	"errors"
	"fmt"
)

// ErrApplyFailed is returned (wrapped in an *ApplyError) when a mutation fails to apply.
// The entity State may be left partially mutated and must be reloaded before retrying.
var ErrApplyFailed = errors.New("failed to apply operation")

// ErrStaleLineage is returned when an operation's outer path resolves to an invalidated operation.
var ErrStaleLineage = errors.New("operation lineage resolves to an invalid operation")

// ErrLineageCycle is returned when a lineage update would make the outer path cyclic.
var ErrLineageCycle = errors.New("lineage update would create a cycle")

// ErrEntityNotFound is returned when an entity has no persisted history.
var ErrEntityNotFound = errors.New("entity not found")

// ErrEntityMismatch is returned when two operations that must target the same entity do not.
var ErrEntityMismatch = errors.New("operations target different entities")

// ErrInvalidOperation is returned when an invalidated operation is dispatched.
var ErrInvalidOperation = errors.New("operation has been invalidated")

// ErrRevisionAhead is returned when an operation is based on a revision the entity has not reached.
var ErrRevisionAhead = errors.New("operation is based on a future revision")

// ErrCorruptLog is returned when a persisted transaction log cannot be replayed.
var ErrCorruptLog = errors.New("transaction log is corrupt")

// ApplyError describes a mutation failure inside Operation.Apply.
type ApplyError struct {
	OperationID string
	EntityID    int
	Index       int // position of the failing mutation in the sequence
	Err         error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("failed to apply op %s to entity %d (mutation %d): %v", e.OperationID, e.EntityID, e.Index, e.Err)
}

// Unwrap returns the original cause.
func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Is reports ErrApplyFailed as a match so callers can use errors.Is.
func (e *ApplyError) Is(target error) bool {
	return target == ErrApplyFailed
}

// ErrSnapshotUnsupported is returned when an entity's State does not implement Cloner.
var ErrSnapshotUnsupported = errors.New("entity state cannot be cloned")
