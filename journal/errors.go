package journal

import (
	"errors"
	"fmt"
)

// ErrConflict is matched by errors.Is() for any ConflictError.
var ErrConflict = errors.New("optimistic concurrency conflict")

// ConflictError is returned for an atomic write that does not continue
// directly from the entity's highest committed sequence number.
type ConflictError struct {
	EntityID string

	// Expected is the highest sequence number that the write assumed had
	// been committed.
	Expected int64

	// Actual is the highest sequence number that had actually been
	// committed.
	Actual int64
}

func (e ConflictError) Error() string {
	return fmt.Sprintf(
		"%s appending to %q: expected highest sequence number to be %d, got %d",
		ErrConflict,
		e.EntityID,
		e.Expected,
		e.Actual,
	)
}

// Is returns true if target is ErrConflict.
func (e ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ErrInvalidWrite is returned for an atomic write whose events are not a
// contiguous range of sequence numbers for a single entity, or whose entity ID
// contains '/'.
var ErrInvalidWrite = errors.New("invalid atomic write")
