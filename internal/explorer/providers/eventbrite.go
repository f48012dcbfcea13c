package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/city-explorer/internal/explorer"
)

const defaultEventbriteURL = "https://www.eventbriteapi.com/v3"

// eventbriteName labels errors, metrics and the circuit breaker.
const eventbriteName = "events"

// EventbriteEvents implements explorer.EventSource for the Eventbrite API.
type EventbriteEvents struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewEventbriteEvents(opts Options) *EventbriteEvents {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultEventbriteURL
	}
	return &EventbriteEvents{
		name:    eventbriteName,
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		httpCfg: httpConfig(opts),
		circuit: newBreaker(eventbriteName),
	}
}

func (p *EventbriteEvents) Search(ctx context.Context, address string) (explorer.EventsResponse, error) {
	if p.apiKey == "" {
		return explorer.EventsResponse{}, upstreamErr(p.name, errMissingAPIKey)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("location.address", address)

		u := fmt.Sprintf("%s/events/search?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		return req, nil
	}

	var payload explorer.EventsResponse
	if err := getJSON(ctx, p.name, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return explorer.EventsResponse{}, err
	}
	return payload, nil
}
