package explorer

import (
	"context"
	"time"
)

// GeocodeResponse is the subset of the geocoder payload we consume.
type GeocodeResponse struct {
	Status  string          `json:"status"`
	Results []GeocodeResult `json:"results"`
}

type GeocodeResult struct {
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// ForecastResponse is the subset of the forecast payload we consume.
type ForecastResponse struct {
	Daily struct {
		Data []DailyForecast `json:"data"`
	} `json:"daily"`
}

type DailyForecast struct {
	Summary string `json:"summary"`
	Time    int64  `json:"time"` // unix seconds
}

// EventsResponse is the subset of the event search payload we consume.
type EventsResponse struct {
	Events []EventPayload `json:"events"`
}

type EventPayload struct {
	URL  string `json:"url"`
	Name struct {
		Text string `json:"text"`
	} `json:"name"`
	Start struct {
		Local string `json:"local"`
	} `json:"start"`
	Summary string `json:"summary"`
}

// MoviesResponse is the subset of the movie search payload we consume.
type MoviesResponse struct {
	Results []MoviePayload `json:"results"`
}

type MoviePayload struct {
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	PosterPath  *string `json:"poster_path"`
	Popularity  float64 `json:"popularity"`
	ReleaseDate string  `json:"release_date"`
}

// Geocoder resolves free text to candidate places.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (GeocodeResponse, error)
}

// WeatherSource fetches a daily forecast for coordinates.
type WeatherSource interface {
	Forecast(ctx context.Context, lat, lng float64) (ForecastResponse, error)
}

// EventSource searches events near an address.
type EventSource interface {
	Search(ctx context.Context, address string) (EventsResponse, error)
}

// MovieSource searches movies by title.
type MovieSource interface {
	Search(ctx context.Context, title string) (MoviesResponse, error)
}

// Store is the contract every persistent store backend must satisfy.
// Implementations must be safe for concurrent use.
type Store interface {
	// Query returns all rows addressed by key, ordered by insertion.
	Query(ctx context.Context, key Key) ([]Record, error)
	// Insert persists rec and returns its id. Inserting a location whose
	// search query already exists is a no-op returning the existing id.
	Insert(ctx context.Context, key Key, rec Record) (int64, error)
	// DeleteAll removes every row addressed by key and returns the count.
	DeleteAll(ctx context.Context, key Key) (int64, error)
	// PurgeStale removes rows of resource r created before olderThan.
	PurgeStale(ctx context.Context, r ResourceType, olderThan time.Time) (int64, error)
}
