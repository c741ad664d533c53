package ledger

import "errors"

// ErrUnavailable indicates the backing store could not be reached. Callers
// surface it rather than swallowing it; a run whose trail cannot be written
// simply stays unobservable until the store recovers.
var ErrUnavailable = errors.New("ledger unavailable")

// Ledger is an append-only event log keyed by correlation id. Appends for
// the same correlation id preserve causal order; appends across ids may
// interleave freely. There is no update or delete.
type Ledger interface {
	// Append records one event. It never fails for a well-formed event
	// unless the backing store is unreachable.
	Append(evt Event) error

	// Query returns the event trail for a correlation id in append order.
	// An unknown id yields an empty slice, not an error: unknown and
	// not-yet-started are indistinguishable by contract.
	Query(correlationID string) ([]Event, error)
}
