package ledger

import (
	"errors"
	"fmt"

	"shelfd/internal/store"
)

// ErrValidation rejects a malformed enqueue request before any row is
// written.
var ErrValidation = errors.New("invalid job spec")

// InvalidTransitionError reports a ledger operation attempted on a job not in
// the required source state.
type InvalidTransitionError struct {
	JobID string
	From  store.Status
	To    store.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("job %s: invalid transition %s -> %s", e.JobID, e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError,
// returning it for inspection.
func IsInvalidTransition(err error) (*InvalidTransitionError, bool) {
	var transition *InvalidTransitionError
	if errors.As(err, &transition) {
		return transition, true
	}
	return nil, false
}
