package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/city-explorer/internal/explorer"
	"github.com/i474232898/city-explorer/internal/store"
)

type stubGeocoder struct {
	resp explorer.GeocodeResponse
}

func (s stubGeocoder) Geocode(context.Context, string) (explorer.GeocodeResponse, error) {
	return s.resp, nil
}

type stubWeather struct {
	err error
}

func (s stubWeather) Forecast(context.Context, float64, float64) (explorer.ForecastResponse, error) {
	var resp explorer.ForecastResponse
	if s.err != nil {
		return resp, s.err
	}
	resp.Daily.Data = []explorer.DailyForecast{{Summary: "Rain.", Time: 1709251200}}
	return resp, nil
}

func newTestApp(t *testing.T, src explorer.Sources) (*fiber.App, *store.MemoryStore) {
	t.Helper()

	mem := store.NewMemoryStore()
	cache, err := explorer.NewCoordinator(mem, explorer.DefaultPolicy())
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	svc, err := explorer.NewService(mem, cache, src, 0)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, svc)
	RegisterHealth(app, "city-explorer", nil)
	return app, mem
}

func get(t *testing.T, app *fiber.App, path string, data string) (int, []byte) {
	t.Helper()
	target := path
	if data != "" {
		target += "?data=" + url.QueryEscape(data)
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

type errorBody struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func decodeError(t *testing.T, body []byte) errorBody {
	t.Helper()
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	if !e.Error {
		t.Fatalf("expected error flag in %s", body)
	}
	return e
}

func seattleResponse() explorer.GeocodeResponse {
	var r explorer.GeocodeResult
	r.FormattedAddress = "Seattle, WA, USA"
	r.Geometry.Location.Lat = 47.6062095
	r.Geometry.Location.Lng = -122.3320708
	return explorer.GeocodeResponse{Status: "OK", Results: []explorer.GeocodeResult{r}}
}

func TestLocationRoute(t *testing.T) {
	app, _ := newTestApp(t, explorer.Sources{Geocoder: stubGeocoder{resp: seattleResponse()}})

	status, body := get(t, app, "/location", "Seattle")
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}

	var loc map[string]any
	if err := json.Unmarshal(body, &loc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if loc["search_query"] != "Seattle" || loc["formatted_query"] != "Seattle, WA, USA" {
		t.Fatalf("unexpected location %v", loc)
	}
	if id, _ := loc["id"].(float64); id <= 0 {
		t.Fatalf("expected a stored id, got %v", loc["id"])
	}
}

func TestLocationRouteNoResults(t *testing.T) {
	app, _ := newTestApp(t, explorer.Sources{Geocoder: stubGeocoder{resp: explorer.GeocodeResponse{Status: "ZERO_RESULTS"}}})

	status, body := get(t, app, "/location", "Atlantis")
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, status)
	}
	if e := decodeError(t, body); e.Message != `no results for "Atlantis"` {
		t.Fatalf("unexpected message %q", e.Message)
	}
}

func TestLocationRouteRequiresData(t *testing.T) {
	app, _ := newTestApp(t, explorer.Sources{})

	status, body := get(t, app, "/location", "")
	if status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, status)
	}
	decodeError(t, body)
}

func TestWeatherRouteValidation(t *testing.T) {
	app, _ := newTestApp(t, explorer.Sources{Weather: stubWeather{}})

	cases := map[string]string{
		"missing data": "",
		"bad json":     "{not json",
		"missing id":   `{"latitude":1,"longitude":2}`,
		"missing lat":  `{"id":1,"longitude":2}`,
		"lat range":    `{"id":1,"latitude":91,"longitude":2}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := get(t, app, "/weather", data)
			if status != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, status, body)
			}
			decodeError(t, body)
		})
	}
}

func TestWeatherRoute(t *testing.T) {
	app, mem := newTestApp(t, explorer.Sources{Weather: stubWeather{}})

	id, err := mem.Insert(context.Background(), explorer.LocationKey("Seattle"), explorer.Location{FormattedQuery: "Seattle, WA, USA"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	data, _ := json.Marshal(explorer.Location{ID: id, SearchQuery: "Seattle", FormattedQuery: "Seattle, WA, USA", Latitude: 47.6, Longitude: -122.3})
	status, body := get(t, app, "/weather", string(data))
	if status != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, status, body)
	}

	var rows []map[string]any
	if err := json.Unmarshal(body, &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0]["forecast"] != "Rain." || rows[0]["time"] != "Fri Mar 01 2024" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestWeatherRouteUpstreamFailure(t *testing.T) {
	upstream := &explorer.UpstreamError{Provider: "weather", StatusCode: 500, Err: errors.New("server error")}
	app, mem := newTestApp(t, explorer.Sources{Weather: stubWeather{err: upstream}})

	id, _ := mem.Insert(context.Background(), explorer.LocationKey("Seattle"), explorer.Location{FormattedQuery: "Seattle, WA, USA"})
	data, _ := json.Marshal(explorer.Location{ID: id, Latitude: 47.6, Longitude: -122.3})

	status, body := get(t, app, "/weather", string(data))
	if status != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, status)
	}
	if e := decodeError(t, body); e.Message != genericFailure {
		t.Fatalf("internal details must not leak, got %q", e.Message)
	}
}

func TestEventsRouteRequiresFormattedQuery(t *testing.T) {
	app, _ := newTestApp(t, explorer.Sources{})

	status, body := get(t, app, "/events", `{"id":1}`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, status)
	}
	if e := decodeError(t, body); e.Message != "invalid location field: formatted_query" {
		t.Fatalf("unexpected message %q", e.Message)
	}
}

func TestMoviesRouteMissingProvider(t *testing.T) {
	app, mem := newTestApp(t, explorer.Sources{})

	id, _ := mem.Insert(context.Background(), explorer.LocationKey("Seattle"), explorer.Location{FormattedQuery: "Seattle, WA, USA"})
	data, _ := json.Marshal(explorer.Location{ID: id, FormattedQuery: "Seattle, WA, USA"})

	status, _ := get(t, app, "/movies", string(data))
	if status != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, status)
	}
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("down") }

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t, explorer.Sources{})
	if status, _ := get(t, app, "/health", ""); status != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, status)
	}

	down := fiber.New()
	RegisterHealth(down, "city-explorer", downPinger{})
	if status, _ := get(t, down, "/health", ""); status != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, status)
	}
}

func TestWeatherRouteUnknownLocation(t *testing.T) {
	app, _ := newTestApp(t, explorer.Sources{Weather: stubWeather{}})

	status, body := get(t, app, "/weather", `{"id":999,"latitude":47.6,"longitude":-122.3}`)
	if status != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNotFound, status, body)
	}
	if e := decodeError(t, body); e.Message != "unknown location id" {
		t.Fatalf("unexpected message %q", e.Message)
	}
}
