package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/city-explorer/internal/explorer"
)

const defaultTMDBURL = "https://api.themoviedb.org/3"

// tmdbName labels errors, metrics and the circuit breaker.
const tmdbName = "movies"

// TMDBMovies implements explorer.MovieSource for The Movie Database API.
type TMDBMovies struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewTMDBMovies(opts Options) *TMDBMovies {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultTMDBURL
	}
	return &TMDBMovies{
		name:    tmdbName,
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		httpCfg: httpConfig(opts),
		circuit: newBreaker(tmdbName),
	}
}

func (p *TMDBMovies) Search(ctx context.Context, title string) (explorer.MoviesResponse, error) {
	if p.apiKey == "" {
		return explorer.MoviesResponse{}, upstreamErr(p.name, errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("api_key", p.apiKey)
		values.Set("query", title)

		u := fmt.Sprintf("%s/search/movie?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	var payload explorer.MoviesResponse
	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return explorer.MoviesResponse{}, err
	}
	return payload, nil
}
