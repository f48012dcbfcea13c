package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func TestMiddlewareAndHandler(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/metrics", Handler())
	app.Get("/weather", func(c *fiber.Ctx) error { return c.SendString("[]") })
	app.Get("/movies", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadRequest, "bad") })

	for _, path := range []string{"/weather", "/movies"} {
		if _, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	ObserveLookup("weather", "hit")
	ObserveEviction("weather", "lookup", 3)
	ObserveEviction("weather", "sweep", 0)
	ObserveUpstream("weather", 20*time.Millisecond, errors.New("boom"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		`city_explorer_http_requests_total{method="GET",path="/weather",status="200"} 1`,
		`city_explorer_http_requests_total{method="GET",path="/movies",status="400"} 1`,
		`city_explorer_cache_lookups_total{outcome="hit",resource="weather"} 1`,
		`city_explorer_cache_evicted_rows_total{reason="lookup",resource="weather"} 3`,
		`city_explorer_upstream_requests_total{provider="weather",result="error"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
	if strings.Contains(text, `path="/metrics"`) {
		t.Error("scrapes must not be counted")
	}
	if strings.Contains(text, `reason="sweep"`) {
		t.Error("zero evictions must not create a series")
	}
}
