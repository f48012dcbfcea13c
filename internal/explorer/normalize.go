package explorer

import (
	"strings"
	"time"
)

const (
	// dayLayout renders calendar-day precision, e.g. "Mon Jan 02 2006".
	dayLayout = "Mon Jan 02 2006"

	posterBaseURL = "https://image.tmdb.org/t/p/w500"
)

// NormalizeLocation builds a Location from the first geocoder match.
func NormalizeLocation(query string, res GeocodeResponse) (Location, error) {
	if len(res.Results) == 0 {
		return Location{}, &NoResultsError{Query: query}
	}
	first := res.Results[0]
	return Location{
		SearchQuery:    query,
		FormattedQuery: first.FormattedAddress,
		Latitude:       first.Geometry.Location.Lat,
		Longitude:      first.Geometry.Location.Lng,
	}, nil
}

// NormalizeWeather maps one forecast day.
func NormalizeWeather(day DailyForecast) Weather {
	return Weather{
		Forecast: day.Summary,
		Time:     time.Unix(day.Time, 0).UTC().Format(dayLayout),
	}
}

// NormalizeEvent maps one event. A start time that does not parse is kept
// verbatim.
func NormalizeEvent(ev EventPayload) Event {
	return Event{
		Link:      ev.URL,
		Name:      ev.Name.Text,
		EventDate: formatLocalDate(ev.Start.Local),
		Summary:   ev.Summary,
	}
}

// NormalizeMovie maps one movie. A missing poster yields an empty ImageURL.
func NormalizeMovie(m MoviePayload) Movie {
	var image string
	if m.PosterPath != nil && *m.PosterPath != "" {
		image = posterBaseURL + *m.PosterPath
	}
	return Movie{
		Title:        m.Title,
		Overview:     m.Overview,
		AverageVotes: m.VoteAverage,
		TotalVotes:   m.VoteCount,
		ImageURL:     image,
		Popularity:   m.Popularity,
		ReleasedOn:   m.ReleaseDate,
	}
}

// MovieSearchTitle returns the city part of a formatted address, which is
// what movie searches are keyed on.
func MovieSearchTitle(formatted string) string {
	city, _, _ := strings.Cut(formatted, ",")
	return strings.TrimSpace(city)
}

func formatLocalDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{"2006-01-02T15:04:05", time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dayLayout)
		}
	}
	return s
}
