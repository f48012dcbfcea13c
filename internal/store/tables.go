package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/city-explorer/internal/explorer"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// table describes how one resource type is laid out. All statements are
// built from the constants below; no caller input reaches a table or column
// name.
type table struct {
	name    string
	columns []string

	args func(explorer.Record) []any
	scan func(scanner) (explorer.Record, error)

	selectSQL string
	insertSQL string
	deleteSQL string
	purgeSQL  string
}

var tables = map[explorer.ResourceType]*table{
	explorer.ResourceLocation: {
		name:    "locations",
		columns: []string{"search_query", "formatted_query", "latitude", "longitude"},
		args: func(rec explorer.Record) []any {
			l := rec.(explorer.Location)
			return []any{l.SearchQuery, l.FormattedQuery, l.Latitude, l.Longitude}
		},
		scan: func(sc scanner) (explorer.Record, error) {
			var l explorer.Location
			err := sc.Scan(&l.ID, &l.SearchQuery, &l.FormattedQuery, &l.Latitude, &l.Longitude)
			return l, err
		},
	},
	explorer.ResourceWeather: {
		name:    "weathers",
		columns: []string{"forecast", "time", "created_at", "location_id"},
		args: func(rec explorer.Record) []any {
			w := rec.(explorer.Weather)
			return []any{w.Forecast, w.Time, w.CreatedAt.UnixMilli(), w.LocationID}
		},
		scan: func(sc scanner) (explorer.Record, error) {
			var (
				w       explorer.Weather
				created int64
			)
			err := sc.Scan(&w.ID, &w.Forecast, &w.Time, &created, &w.LocationID)
			w.CreatedAt = fromMillis(created)
			return w, err
		},
	},
	explorer.ResourceEvent: {
		name:    "events",
		columns: []string{"link", "name", "event_date", "summary", "created_at", "location_id"},
		args: func(rec explorer.Record) []any {
			e := rec.(explorer.Event)
			return []any{e.Link, e.Name, e.EventDate, e.Summary, e.CreatedAt.UnixMilli(), e.LocationID}
		},
		scan: func(sc scanner) (explorer.Record, error) {
			var (
				e       explorer.Event
				created int64
			)
			err := sc.Scan(&e.ID, &e.Link, &e.Name, &e.EventDate, &e.Summary, &created, &e.LocationID)
			e.CreatedAt = fromMillis(created)
			return e, err
		},
	},
	explorer.ResourceMovie: {
		name: "movies",
		columns: []string{
			"title", "overview", "average_votes", "total_votes", "image_url",
			"popularity", "released_on", "created_at", "location_id",
		},
		args: func(rec explorer.Record) []any {
			m := rec.(explorer.Movie)
			return []any{
				m.Title, m.Overview, m.AverageVotes, m.TotalVotes, m.ImageURL,
				m.Popularity, m.ReleasedOn, m.CreatedAt.UnixMilli(), m.LocationID,
			}
		},
		scan: func(sc scanner) (explorer.Record, error) {
			var (
				m       explorer.Movie
				created int64
			)
			err := sc.Scan(&m.ID, &m.Title, &m.Overview, &m.AverageVotes, &m.TotalVotes, &m.ImageURL,
				&m.Popularity, &m.ReleasedOn, &created, &m.LocationID)
			m.CreatedAt = fromMillis(created)
			return m, err
		},
	},
}

func init() {
	for r, t := range tables {
		cols := strings.Join(t.columns, ", ")
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")

		if r == explorer.ResourceLocation {
			t.selectSQL = "SELECT id, " + cols + " FROM " + t.name + " WHERE search_query = ?"
			t.insertSQL = "INSERT INTO " + t.name + " (" + cols + ") VALUES (" + marks + ") ON CONFLICT (search_query) DO NOTHING"
			continue
		}

		t.selectSQL = "SELECT id, " + cols + " FROM " + t.name + " WHERE location_id = ? ORDER BY id"
		t.insertSQL = "INSERT INTO " + t.name + " (" + cols + ") VALUES (" + marks + ") RETURNING id"
		t.deleteSQL = "DELETE FROM " + t.name + " WHERE location_id = ?"
		t.purgeSQL = "DELETE FROM " + t.name + " WHERE created_at < ?"
	}
}

func lookupTable(r explorer.ResourceType) (*table, error) {
	t, ok := tables[r]
	if !ok {
		return nil, fmt.Errorf("unknown resource type %d", int(r))
	}
	return t, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// schema returns the DDL for the four cache tables.
func schema(postgres bool) []string {
	idCol := "INTEGER PRIMARY KEY AUTOINCREMENT"
	bigint := "INTEGER"
	float := "REAL"
	if postgres {
		idCol = "BIGSERIAL PRIMARY KEY"
		bigint = "BIGINT"
		float = "DOUBLE PRECISION"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS locations (
			id ` + idCol + `,
			search_query TEXT NOT NULL UNIQUE,
			formatted_query TEXT NOT NULL,
			latitude ` + float + ` NOT NULL,
			longitude ` + float + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS weathers (
			id ` + idCol + `,
			forecast TEXT NOT NULL,
			time TEXT NOT NULL,
			created_at ` + bigint + ` NOT NULL,
			location_id ` + bigint + ` NOT NULL REFERENCES locations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_weathers_location ON weathers(location_id)`,
		`CREATE TABLE IF NOT EXISTS events (
			id ` + idCol + `,
			link TEXT NOT NULL,
			name TEXT NOT NULL,
			event_date TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at ` + bigint + ` NOT NULL,
			location_id ` + bigint + ` NOT NULL REFERENCES locations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_location ON events(location_id)`,
		`CREATE TABLE IF NOT EXISTS movies (
			id ` + idCol + `,
			title TEXT NOT NULL,
			overview TEXT NOT NULL,
			average_votes ` + float + ` NOT NULL,
			total_votes ` + bigint + ` NOT NULL,
			image_url TEXT NOT NULL,
			popularity ` + float + ` NOT NULL,
			released_on TEXT NOT NULL,
			created_at ` + bigint + ` NOT NULL,
			location_id ` + bigint + ` NOT NULL REFERENCES locations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movies_location ON movies(location_id)`,
	}
}
