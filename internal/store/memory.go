package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/city-explorer/internal/explorer"
)

// MemoryStore is a concurrency-safe in-memory implementation of
// explorer.Store. It enforces the same constraints as the SQL store.
type MemoryStore struct {
	mu sync.RWMutex

	nextID int64

	// key: search query
	locations map[string]explorer.Location
	// ids of stored locations
	locationIDs map[int64]struct{}

	// key: resource type, then location id
	children map[explorer.ResourceType]map[int64][]explorer.Record

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locations:   make(map[string]explorer.Location),
		locationIDs: make(map[int64]struct{}),
		children:    make(map[explorer.ResourceType]map[int64][]explorer.Record),
		now:         time.Now,
	}
}

// Query returns the rows addressed by key in insertion order.
func (s *MemoryStore) Query(_ context.Context, key explorer.Key) ([]explorer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if key.Resource == explorer.ResourceLocation {
		loc, ok := s.locations[key.SearchQuery]
		if !ok {
			return nil, nil
		}
		return []explorer.Record{loc}, nil
	}

	rows := s.children[key.Resource][key.LocationID]
	out := make([]explorer.Record, len(rows))
	copy(out, rows)
	return out, nil
}

// Insert stores rec. Locations are deduplicated by search query.
func (s *MemoryStore) Insert(_ context.Context, key explorer.Key, rec explorer.Record) (int64, error) {
	rec, err := prepare(key, rec, s.now().UTC())
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if loc, ok := rec.(explorer.Location); ok {
		if existing, ok := s.locations[loc.SearchQuery]; ok {
			return existing.ID, nil
		}
		s.nextID++
		loc.ID = s.nextID
		s.locations[loc.SearchQuery] = loc
		s.locationIDs[loc.ID] = struct{}{}
		return loc.ID, nil
	}

	if _, ok := s.locationIDs[key.LocationID]; !ok {
		return 0, ErrUnknownLocation
	}

	byLocation, ok := s.children[key.Resource]
	if !ok {
		byLocation = make(map[int64][]explorer.Record)
		s.children[key.Resource] = byLocation
	}

	s.nextID++
	byLocation[key.LocationID] = append(byLocation[key.LocationID], withID(rec, s.nextID))
	return s.nextID, nil
}

// DeleteAll removes every child row addressed by key.
func (s *MemoryStore) DeleteAll(_ context.Context, key explorer.Key) (int64, error) {
	if key.Resource == explorer.ResourceLocation {
		return 0, ErrImmutable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byLocation := s.children[key.Resource]
	n := int64(len(byLocation[key.LocationID]))
	delete(byLocation, key.LocationID)
	return n, nil
}

// PurgeStale removes rows of resource r created before olderThan.
func (s *MemoryStore) PurgeStale(_ context.Context, r explorer.ResourceType, olderThan time.Time) (int64, error) {
	if r == explorer.ResourceLocation {
		return 0, ErrImmutable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, rows := range s.children[r] {
		kept := rows[:0]
		for _, row := range rows {
			if row.Created().Before(olderThan) {
				purged++
				continue
			}
			kept = append(kept, row)
		}
		if len(kept) == 0 {
			delete(s.children[r], id)
			continue
		}
		s.children[r][id] = kept
	}
	return purged, nil
}
