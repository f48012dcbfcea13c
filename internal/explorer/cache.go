package explorer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/i474232898/city-explorer/internal/logger"
	"github.com/i474232898/city-explorer/internal/metrics"
	"github.com/i474232898/city-explorer/internal/telemetry"
)

// DefaultWeatherMaxAge is how long stored forecasts are served before they
// are refetched.
const DefaultWeatherMaxAge = 15 * time.Second

// Outcome tells the caller whether the store answered a lookup.
type Outcome int

const (
	Miss Outcome = iota
	Hit
)

func (o Outcome) String() string {
	if o == Hit {
		return "hit"
	}
	return "miss"
}

// Result is the outcome of one Lookup. Rows is non-empty only for Hit.
type Result struct {
	Outcome Outcome
	Rows    []Record
	// Evicted counts rows deleted because they were stale.
	Evicted int64
}

// Policy maps a resource type to its freshness threshold. Absent or zero
// entries never expire.
type Policy map[ResourceType]time.Duration

// DefaultPolicy expires weather only.
func DefaultPolicy() Policy {
	return Policy{ResourceWeather: DefaultWeatherMaxAge}
}

// Coordinator gates calls to upstream providers behind the store.
type Coordinator struct {
	store  Store
	policy Policy
	now    func() time.Time
	log    *zap.SugaredLogger
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a Coordinator. Locations never expire, so a policy
// entry for them is rejected.
func NewCoordinator(store Store, policy Policy, opts ...CoordinatorOption) (*Coordinator, error) {
	if store == nil {
		return nil, fmt.Errorf("coordinator: store is required")
	}
	p := make(Policy, len(policy))
	for r, d := range policy {
		if !r.Valid() {
			return nil, fmt.Errorf("coordinator: unknown resource type %d", int(r))
		}
		if d < 0 {
			return nil, fmt.Errorf("coordinator: negative max age for %s", r)
		}
		if r == ResourceLocation && d > 0 {
			return nil, fmt.Errorf("coordinator: locations cannot expire")
		}
		if d > 0 {
			p[r] = d
		}
	}

	c := &Coordinator{
		store:  store,
		policy: p,
		now:    time.Now,
		log:    logger.GetLogger("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MaxAge returns the freshness threshold for r, or zero when r never expires.
func (c *Coordinator) MaxAge(r ResourceType) time.Duration {
	return c.policy[r]
}

// Lookup consults the store for key. Stale rows of a resource type with a
// freshness policy are deleted and reported as a Miss. Store failures are
// returned as *StoreError.
func (c *Coordinator) Lookup(ctx context.Context, key Key) (res Result, err error) {
	if !key.Resource.Valid() {
		return Result{}, fmt.Errorf("%w: unknown resource type %d", ErrInvalidQuery, int(key.Resource))
	}

	resource := key.Resource.String()
	ctx, span := telemetry.StartSpan(ctx, "cache.lookup",
		attribute.String("resource", resource),
		attribute.Int64("location_id", key.LocationID),
	)
	defer func() {
		outcome := res.Outcome.String()
		switch {
		case err != nil:
			outcome = "error"
		case res.Evicted > 0:
			outcome = "stale"
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		metrics.ObserveLookup(resource, outcome)
		telemetry.EndSpan(span, err)
	}()

	rows, err := c.store.Query(ctx, key)
	if err != nil {
		c.log.Errorw("query failed", "key", key.String(), "error", err)
		return Result{}, storeErr("query", key.Resource, err)
	}

	if len(rows) == 0 {
		c.log.Debugw("cache miss", "key", key.String())
		return Result{Outcome: Miss}, nil
	}

	maxAge := c.policy[key.Resource]
	if maxAge == 0 {
		c.log.Debugw("cache hit", "key", key.String(), "rows", len(rows))
		return Result{Outcome: Hit, Rows: rows}, nil
	}

	age := c.now().Sub(oldest(rows))
	if age <= maxAge {
		c.log.Debugw("cache hit", "key", key.String(), "rows", len(rows), "age", age)
		return Result{Outcome: Hit, Rows: rows}, nil
	}

	n, err := c.store.DeleteAll(ctx, key)
	if err != nil {
		c.log.Errorw("evict failed", "key", key.String(), "error", err)
		return Result{}, storeErr("delete", key.Resource, err)
	}
	metrics.ObserveEviction(resource, "lookup", n)
	c.log.Debugw("cache stale, evicted", "key", key.String(), "rows", n, "age", age)

	return Result{Outcome: Miss, Evicted: n}, nil
}

// Sweep purges stale rows of every resource type with a freshness policy,
// regardless of whether anyone looks them up again. It returns the number
// of rows removed per resource type.
func (c *Coordinator) Sweep(ctx context.Context) (map[ResourceType]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "cache.sweep")

	purged := make(map[ResourceType]int64, len(c.policy))
	now := c.now()
	for _, r := range ResourceTypes {
		maxAge, ok := c.policy[r]
		if !ok {
			continue
		}
		n, err := c.store.PurgeStale(ctx, r, now.Add(-maxAge))
		if err != nil {
			err = storeErr("purge", r, err)
			telemetry.EndSpan(span, err)
			return purged, err
		}
		purged[r] = n
		metrics.ObserveEviction(r.String(), "sweep", n)
	}

	telemetry.EndSpan(span, nil)
	return purged, nil
}

// oldest returns the earliest creation time among rows.
func oldest(rows []Record) time.Time {
	var t time.Time
	for i, r := range rows {
		if c := r.Created(); i == 0 || c.Before(t) {
			t = c
		}
	}
	return t
}
