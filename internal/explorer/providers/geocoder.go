package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/city-explorer/internal/explorer"
)

const defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// geocoderName labels errors, metrics and the circuit breaker.
const geocoderName = "geocoder"

// GoogleGeocoder implements explorer.Geocoder for the Google Geocoding API.
type GoogleGeocoder struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewGoogleGeocoder(opts Options) *GoogleGeocoder {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultGeocodeURL
	}
	return &GoogleGeocoder{
		name:    geocoderName,
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		httpCfg: httpConfig(opts),
		circuit: newBreaker(geocoderName),
	}
}

// Geocode looks up query. A ZERO_RESULTS answer is returned as an empty
// response, not an error.
func (p *GoogleGeocoder) Geocode(ctx context.Context, query string) (explorer.GeocodeResponse, error) {
	if p.apiKey == "" {
		return explorer.GeocodeResponse{}, upstreamErr(p.name, errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("address", query)
		values.Set("key", p.apiKey)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload explorer.GeocodeResponse
	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return explorer.GeocodeResponse{}, err
	}

	switch payload.Status {
	case "", "OK", "ZERO_RESULTS":
		return payload, nil
	default:
		return explorer.GeocodeResponse{}, upstreamErr(p.name, fmt.Errorf("geocode status %s", payload.Status))
	}
}
