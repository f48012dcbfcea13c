package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/i474232898/city-explorer/internal/explorer"
)

const defaultForecastURL = "https://api.darksky.net/forecast"

// darkskyName labels errors, metrics and the circuit breaker.
const darkskyName = "weather"

// DarkSkyWeather implements explorer.WeatherSource for Dark Sky compatible
// forecast endpoints (/forecast/<key>/<lat>,<lng>).
type DarkSkyWeather struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewDarkSkyWeather(opts Options) *DarkSkyWeather {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultForecastURL
	}
	return &DarkSkyWeather{
		name:    darkskyName,
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		httpCfg: httpConfig(opts),
		circuit: newBreaker(darkskyName),
	}
}

func (p *DarkSkyWeather) Forecast(ctx context.Context, lat, lng float64) (explorer.ForecastResponse, error) {
	if p.apiKey == "" {
		return explorer.ForecastResponse{}, upstreamErr(p.name, errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		coords := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
		u := fmt.Sprintf("%s/%s/%s", p.baseURL, url.PathEscape(p.apiKey), coords)
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload explorer.ForecastResponse
	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return explorer.ForecastResponse{}, err
	}
	return payload, nil
}
