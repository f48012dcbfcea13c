package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "city_explorer_cache_lookups_total",
			Help: "Cache lookups by resource type and outcome (hit, miss, stale, error).",
		},
		[]string{"resource", "outcome"},
	)

	cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "city_explorer_cache_evicted_rows_total",
			Help: "Rows deleted because they exceeded the freshness threshold.",
		},
		[]string{"resource", "reason"},
	)

	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "city_explorer_upstream_requests_total",
			Help: "Outbound provider requests by result.",
		},
		[]string{"provider", "result"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "city_explorer_upstream_request_duration_seconds",
			Help:    "Outbound provider latency in seconds, retries included.",
			Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "city_explorer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "city_explorer_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// ObserveLookup counts one cache lookup.
func ObserveLookup(resource, outcome string) {
	cacheLookups.WithLabelValues(resource, outcome).Inc()
}

// ObserveEviction counts rows removed for staleness. reason is "lookup" or
// "sweep".
func ObserveEviction(resource, reason string, rows int64) {
	if rows <= 0 {
		return
	}
	cacheEvictions.WithLabelValues(resource, reason).Add(float64(rows))
}

// ObserveUpstream records one outbound provider call.
func ObserveUpstream(provider string, took time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	upstreamRequests.WithLabelValues(provider, result).Inc()
	upstreamDuration.WithLabelValues(provider).Observe(took.Seconds())
}

// Middleware records request count and latency per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if strings.HasPrefix(path, "/metrics") {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// The central error handler has not written the response yet.
			status = fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
		}

		routePath := c.Route().Path
		if routePath == "" {
			routePath = path
		}

		httpRequestsTotal.WithLabelValues(c.Method(), routePath, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), routePath).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler serves the default prometheus registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
