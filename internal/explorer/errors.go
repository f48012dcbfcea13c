package explorer

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned when a lookup is attempted without the input
// needed to address it.
var ErrInvalidQuery = errors.New("invalid query")

// NoResultsError means the geocoder found no match for a search.
type NoResultsError struct {
	Query string
}

func (e *NoResultsError) Error() string {
	return fmt.Sprintf("no results for %q", e.Query)
}

// StoreError wraps a failure of the persistent store.
type StoreError struct {
	Op       string
	Resource ResourceType
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// UpstreamError wraps a failed call to a third-party provider. StatusCode is
// zero when no HTTP response was received.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func storeErr(op string, r ResourceType, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Resource: r, Err: err}
}
