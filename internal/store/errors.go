package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConstraint is returned on uniqueness violations, such as registering
	// the same podcast feed URL twice.
	ErrConstraint = errors.New("constraint violation")

	// ErrStoreUnavailable wraps failures to open or migrate the database.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// CorruptStatusError reports a persisted job status outside the known enum.
// It is surfaced to the caller rather than coerced.
type CorruptStatusError struct {
	JobID string
	Value string
}

func (e *CorruptStatusError) Error() string {
	return fmt.Sprintf("job %s has corrupt status %q", e.JobID, e.Value)
}
