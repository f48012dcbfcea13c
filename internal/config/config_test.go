package config

import (
	"testing"
	"time"

	"github.com/i474232898/city-explorer/internal/explorer"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"PORT", "DATABASE_DRIVER", "DATABASE_URL", "HTTP_TIMEOUT",
		"WEATHER_MAX_AGE", "EVENTS_MAX_AGE", "MOVIES_MAX_AGE", "SWEEP_INTERVAL",
		"LOCATION_CACHE_SIZE", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "3000" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.DatabaseDriver != "sqlite" || cfg.DatabaseURL != "data/city-explorer.db" {
		t.Fatalf("unexpected database %q %q", cfg.DatabaseDriver, cfg.DatabaseURL)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Fatalf("HTTPTimeout = %s", cfg.HTTPTimeout)
	}
	if cfg.WeatherMaxAge != 15*time.Second || cfg.EventsMaxAge != 0 || cfg.MoviesMaxAge != 0 {
		t.Fatalf("unexpected thresholds %s %s %s", cfg.WeatherMaxAge, cfg.EventsMaxAge, cfg.MoviesMaxAge)
	}
	if cfg.SweepInterval != 0 || cfg.LocationCacheSize != 256 || cfg.LogLevel != "info" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("WEATHER_MAX_AGE", "1m")
	t.Setenv("MOVIES_MAX_AGE", "24h")
	t.Setenv("SWEEP_INTERVAL", "5m")
	t.Setenv("MOVIE_API_KEY", "secret")
	t.Setenv("MOVIE_BASE_URL", "http://localhost:9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DatabaseDriver != "memory" || cfg.SweepInterval != 5*time.Minute {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Movies.APIKey != "secret" || cfg.Movies.BaseURL != "http://localhost:9999" {
		t.Fatalf("unexpected movie provider %+v", cfg.Movies)
	}

	p := cfg.Policy()
	if p[explorer.ResourceWeather] != time.Minute || p[explorer.ResourceMovie] != 24*time.Hour || p[explorer.ResourceEvent] != 0 {
		t.Fatalf("unexpected policy %v", p)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad duration":   {"WEATHER_MAX_AGE", "soon"},
		"negative":       {"EVENTS_MAX_AGE", "-1s"},
		"driver":         {"DATABASE_DRIVER", "oracle"},
		"cache size":     {"LOCATION_CACHE_SIZE", "lots"},
		"negative cache": {"LOCATION_CACHE_SIZE", "-4"},
		"timeout":        {"HTTP_TIMEOUT", "10"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected an error for %s=%s", kv[0], kv[1])
			}
		})
	}
}
