package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/i474232898/city-explorer/internal/explorer"
)

var (
	// ErrUnknownLocation is returned when a child row references a location
	// that was never stored.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrImmutable is returned for deletes against locations, which are never
	// removed.
	ErrImmutable = errors.New("locations cannot be deleted")
)

// prepare checks rec against key and fills in the owning location and
// creation time of child rows.
func prepare(key explorer.Key, rec explorer.Record, now time.Time) (explorer.Record, error) {
	if !key.Resource.Valid() {
		return nil, fmt.Errorf("unknown resource type %d", int(key.Resource))
	}
	if rec == nil || rec.Resource() != key.Resource {
		return nil, fmt.Errorf("record does not match key %s", key)
	}

	switch r := rec.(type) {
	case explorer.Location:
		if key.SearchQuery == "" {
			return nil, fmt.Errorf("location insert requires a search query")
		}
		r.SearchQuery = key.SearchQuery
		return r, nil
	case explorer.Weather:
		r.LocationID = key.LocationID
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r, nil
	case explorer.Event:
		r.LocationID = key.LocationID
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r, nil
	case explorer.Movie:
		r.LocationID = key.LocationID
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported record %T", rec)
	}
}

// withID returns rec carrying the store-assigned id.
func withID(rec explorer.Record, id int64) explorer.Record {
	switch r := rec.(type) {
	case explorer.Location:
		r.ID = id
		return r
	case explorer.Weather:
		r.ID = id
		return r
	case explorer.Event:
		r.ID = id
		return r
	case explorer.Movie:
		r.ID = id
		return r
	default:
		return rec
	}
}
