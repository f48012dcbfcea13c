package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/i474232898/city-explorer/internal/logger"
	"github.com/i474232898/city-explorer/internal/telemetry"
)

var errNotConfigured = errors.New("provider not configured")

// Sources bundles the upstream providers. A nil source fails its resource
// with an *UpstreamError.
type Sources struct {
	Geocoder Geocoder
	Weather  WeatherSource
	Events   EventSource
	Movies   MovieSource
}

// Service resolves locations and serves their weather, events and movies,
// consulting the store before any provider.
type Service struct {
	store   Store
	cache   *Coordinator
	sources Sources

	// memo holds resolved locations by search text. Locations are never
	// mutated, so entries cannot go stale.
	memo *lru.Cache[string, Location]

	log *zap.SugaredLogger
}

// NewService creates a Service. memoSize bounds the in-process location
// memo; zero disables it.
func NewService(store Store, cache *Coordinator, sources Sources, memoSize int) (*Service, error) {
	if store == nil || cache == nil {
		return nil, fmt.Errorf("service: store and coordinator are required")
	}

	s := &Service{
		store:   store,
		cache:   cache,
		sources: sources,
		log:     logger.GetLogger("service"),
	}

	if memoSize > 0 {
		memo, err := lru.New[string, Location](memoSize)
		if err != nil {
			return nil, fmt.Errorf("service: location memo: %w", err)
		}
		s.memo = memo
	}

	return s, nil
}

// ResolveLocation returns the stored Location for query, geocoding and
// persisting it on first use. A geocoder with no match yields
// *NoResultsError.
func (s *Service) ResolveLocation(ctx context.Context, query string) (loc Location, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Location{}, fmt.Errorf("%w: empty location query", ErrInvalidQuery)
	}

	if s.memo != nil {
		if loc, ok := s.memo.Get(query); ok {
			return loc, nil
		}
	}

	ctx, span := telemetry.StartSpan(ctx, "service.location", attribute.String("query", query))
	defer func() { telemetry.EndSpan(span, err) }()

	key := LocationKey(query)
	res, err := s.cache.Lookup(ctx, key)
	if err != nil {
		return Location{}, err
	}

	if res.Outcome == Hit {
		if locs := rowsOf[Location](res.Rows); len(locs) > 0 {
			s.remember(locs[0])
			return locs[0], nil
		}
	}

	if s.sources.Geocoder == nil {
		return Location{}, &UpstreamError{Provider: "geocoder", Err: errNotConfigured}
	}

	raw, err := s.sources.Geocoder.Geocode(ctx, query)
	if err != nil {
		s.log.Errorw("geocode failed", "query", query, "error", err)
		return Location{}, err
	}

	loc, err = NormalizeLocation(query, raw)
	if err != nil {
		return Location{}, err
	}

	id, err := s.store.Insert(ctx, key, loc)
	if err != nil {
		s.log.Errorw("persist location failed", "query", query, "error", err)
		return Location{}, storeErr("insert", ResourceLocation, err)
	}
	loc.ID = id

	s.remember(loc)
	return loc, nil
}

func (s *Service) remember(loc Location) {
	if s.memo != nil && loc.ID > 0 {
		s.memo.Add(loc.SearchQuery, loc)
	}
}

// Weather returns the daily forecast for loc.
func (s *Service) Weather(ctx context.Context, loc Location) ([]Weather, error) {
	if loc.ID <= 0 {
		return nil, fmt.Errorf("%w: location id is required", ErrInvalidQuery)
	}

	fetch := func(ctx context.Context) ([]Weather, error) {
		if s.sources.Weather == nil {
			return nil, &UpstreamError{Provider: "weather", Err: errNotConfigured}
		}
		raw, err := s.sources.Weather.Forecast(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			return nil, err
		}
		now := s.cache.now().UTC()
		out := make([]Weather, 0, len(raw.Daily.Data))
		for _, day := range raw.Daily.Data {
			w := NormalizeWeather(day)
			w.CreatedAt = now
			w.LocationID = loc.ID
			out = append(out, w)
		}
		return out, nil
	}

	return cached(ctx, s, ChildKey(ResourceWeather, loc.ID), fetch, func(w Weather, id int64) Weather {
		w.ID = id
		return w
	})
}

// Events returns events near loc.
func (s *Service) Events(ctx context.Context, loc Location) ([]Event, error) {
	if loc.ID <= 0 || loc.FormattedQuery == "" {
		return nil, fmt.Errorf("%w: location id and formatted query are required", ErrInvalidQuery)
	}

	fetch := func(ctx context.Context) ([]Event, error) {
		if s.sources.Events == nil {
			return nil, &UpstreamError{Provider: "events", Err: errNotConfigured}
		}
		raw, err := s.sources.Events.Search(ctx, loc.FormattedQuery)
		if err != nil {
			return nil, err
		}
		now := s.cache.now().UTC()
		out := make([]Event, 0, len(raw.Events))
		for _, ev := range raw.Events {
			e := NormalizeEvent(ev)
			e.CreatedAt = now
			e.LocationID = loc.ID
			out = append(out, e)
		}
		return out, nil
	}

	return cached(ctx, s, ChildKey(ResourceEvent, loc.ID), fetch, func(e Event, id int64) Event {
		e.ID = id
		return e
	})
}

// Movies returns movies whose title matches loc's city.
func (s *Service) Movies(ctx context.Context, loc Location) ([]Movie, error) {
	if loc.ID <= 0 || loc.FormattedQuery == "" {
		return nil, fmt.Errorf("%w: location id and formatted query are required", ErrInvalidQuery)
	}

	fetch := func(ctx context.Context) ([]Movie, error) {
		if s.sources.Movies == nil {
			return nil, &UpstreamError{Provider: "movies", Err: errNotConfigured}
		}
		raw, err := s.sources.Movies.Search(ctx, MovieSearchTitle(loc.FormattedQuery))
		if err != nil {
			return nil, err
		}
		now := s.cache.now().UTC()
		out := make([]Movie, 0, len(raw.Results))
		for _, mv := range raw.Results {
			m := NormalizeMovie(mv)
			m.CreatedAt = now
			m.LocationID = loc.ID
			out = append(out, m)
		}
		return out, nil
	}

	return cached(ctx, s, ChildKey(ResourceMovie, loc.ID), fetch, func(m Movie, id int64) Movie {
		m.ID = id
		return m
	})
}

// cached runs the cache-aside protocol for one child resource: serve stored
// rows on a hit, otherwise fetch, persist and return the fresh rows.
func cached[T Record](
	ctx context.Context,
	s *Service,
	key Key,
	fetch func(context.Context) ([]T, error),
	withID func(T, int64) T,
) (rows []T, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service."+key.Resource.String(),
		attribute.Int64("location_id", key.LocationID),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	res, err := s.cache.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if res.Outcome == Hit {
		return rowsOf[T](res.Rows), nil
	}

	fresh, err := fetch(ctx)
	if err != nil {
		s.log.Errorw("upstream fetch failed", "key", key.String(), "error", err)
		return nil, err
	}

	out := make([]T, 0, len(fresh))
	for _, rec := range fresh {
		id, err := s.store.Insert(ctx, key, rec)
		if err != nil {
			s.log.Errorw("persist failed", "key", key.String(), "error", err)
			// A partial group would be served as a hit; drop what was written.
			if len(out) > 0 {
				if _, derr := s.store.DeleteAll(ctx, key); derr != nil {
					s.log.Errorw("rollback of partial rows failed", "key", key.String(), "error", derr)
				}
			}
			return nil, storeErr("insert", key.Resource, err)
		}
		out = append(out, withID(rec, id))
	}

	s.log.Debugw("cache populated", "key", key.String(), "rows", len(out))
	return out, nil
}
