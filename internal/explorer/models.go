package explorer

import (
	"fmt"
	"time"
)

// ResourceType identifies a category of cached record. Each value maps to
// exactly one table in the store.
type ResourceType int

const (
	ResourceLocation ResourceType = iota + 1
	ResourceWeather
	ResourceEvent
	ResourceMovie
)

// ResourceTypes lists every known resource type.
var ResourceTypes = []ResourceType{
	ResourceLocation,
	ResourceWeather,
	ResourceEvent,
	ResourceMovie,
}

func (r ResourceType) String() string {
	switch r {
	case ResourceLocation:
		return "location"
	case ResourceWeather:
		return "weather"
	case ResourceEvent:
		return "event"
	case ResourceMovie:
		return "movie"
	default:
		return fmt.Sprintf("resource(%d)", int(r))
	}
}

// Valid reports whether r is one of the known resource types.
func (r ResourceType) Valid() bool {
	return r >= ResourceLocation && r <= ResourceMovie
}

// Key addresses the cached rows of one resource type. Locations are keyed by
// their raw search text; every other resource is keyed by its parent location.
type Key struct {
	Resource    ResourceType
	LocationID  int64
	SearchQuery string
}

// LocationKey returns the key for a location search.
func LocationKey(query string) Key {
	return Key{Resource: ResourceLocation, SearchQuery: query}
}

// ChildKey returns the key for rows of resource r owned by locationID.
func ChildKey(r ResourceType, locationID int64) Key {
	return Key{Resource: r, LocationID: locationID}
}

func (k Key) String() string {
	if k.Resource == ResourceLocation {
		return fmt.Sprintf("%s:%q", k.Resource, k.SearchQuery)
	}
	return fmt.Sprintf("%s:%d", k.Resource, k.LocationID)
}

// Record is a row of one of the cached resource types.
type Record interface {
	Resource() ResourceType
	// Created returns when the row was stored; zero for locations.
	Created() time.Time
}

// Location is a resolved place. SearchQuery uniquely identifies it.
type Location struct {
	ID             int64   `json:"id"`
	SearchQuery    string  `json:"search_query"`
	FormattedQuery string  `json:"formatted_query"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

func (Location) Resource() ResourceType { return ResourceLocation }
func (Location) Created() time.Time     { return time.Time{} }

// Weather is one day of forecast for a location.
type Weather struct {
	ID         int64     `json:"id,omitempty"`
	Forecast   string    `json:"forecast"`
	Time       string    `json:"time"`
	CreatedAt  time.Time `json:"created_at"`
	LocationID int64     `json:"location_id"`
}

func (Weather) Resource() ResourceType { return ResourceWeather }
func (w Weather) Created() time.Time   { return w.CreatedAt }

// Event is an upcoming event near a location.
type Event struct {
	ID         int64     `json:"id,omitempty"`
	Link       string    `json:"link"`
	Name       string    `json:"name"`
	EventDate  string    `json:"event_date"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
	LocationID int64     `json:"location_id"`
}

func (Event) Resource() ResourceType { return ResourceEvent }
func (e Event) Created() time.Time   { return e.CreatedAt }

// Movie is a film whose title matches the location's city.
type Movie struct {
	ID           int64     `json:"id,omitempty"`
	Title        string    `json:"title"`
	Overview     string    `json:"overview"`
	AverageVotes float64   `json:"average_votes"`
	TotalVotes   int       `json:"total_votes"`
	ImageURL     string    `json:"image_url"`
	Popularity   float64   `json:"popularity"`
	ReleasedOn   string    `json:"released_on"`
	CreatedAt    time.Time `json:"created_at"`
	LocationID   int64     `json:"location_id"`
}

func (Movie) Resource() ResourceType { return ResourceMovie }
func (m Movie) Created() time.Time   { return m.CreatedAt }

// rowsOf narrows generic store rows to a concrete record type, skipping
// anything that does not match.
func rowsOf[T Record](rows []Record) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if v, ok := r.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
