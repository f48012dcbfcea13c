package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/city-explorer/internal/explorer"
	"github.com/i474232898/city-explorer/internal/logger"
)

// ProviderConfig holds credentials and endpoint for one upstream provider.
type ProviderConfig struct {
	APIKey  string
	BaseURL string // empty = provider default
}

type AppConfig struct {
	Port string

	Geocode    ProviderConfig
	Weather    ProviderConfig
	Eventbrite ProviderConfig
	Movies     ProviderConfig

	// HTTPTimeout bounds every outbound provider request.
	HTTPTimeout time.Duration

	// DatabaseDriver is one of sqlite, postgres or memory.
	DatabaseDriver string
	DatabaseURL    string

	// Freshness thresholds (0 = never expires).
	WeatherMaxAge time.Duration
	EventsMaxAge  time.Duration
	MoviesMaxAge  time.Duration

	// SweepInterval controls how often stale rows are purged (0 = disabled).
	SweepInterval time.Duration

	// LocationCacheSize bounds the in-process location memo (0 = disabled).
	LocationCacheSize int

	LogLevel     string
	OTLPEndpoint string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.GetLogger("config").Infof("no .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "3000")

	cfg.Geocode = ProviderConfig{
		APIKey:  os.Getenv("GEOCODE_API_KEY"),
		BaseURL: os.Getenv("GEOCODE_BASE_URL"),
	}
	cfg.Weather = ProviderConfig{
		APIKey:  os.Getenv("WEATHER_API_KEY"),
		BaseURL: os.Getenv("WEATHER_BASE_URL"),
	}
	cfg.Eventbrite = ProviderConfig{
		APIKey:  os.Getenv("EVENTBRITE_API_KEY"),
		BaseURL: os.Getenv("EVENTBRITE_BASE_URL"),
	}
	cfg.Movies = ProviderConfig{
		APIKey:  os.Getenv("MOVIE_API_KEY"),
		BaseURL: os.Getenv("MOVIE_BASE_URL"),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.DatabaseDriver = getenvDefault("DATABASE_DRIVER", "sqlite")
	switch cfg.DatabaseDriver {
	case "sqlite", "postgres", "memory":
	default:
		return nil, fmt.Errorf("invalid DATABASE_DRIVER %q: want sqlite, postgres or memory", cfg.DatabaseDriver)
	}
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", "data/city-explorer.db")

	if cfg.WeatherMaxAge, err = getenvDuration("WEATHER_MAX_AGE", explorer.DefaultWeatherMaxAge.String()); err != nil {
		return nil, err
	}
	if cfg.EventsMaxAge, err = getenvDuration("EVENTS_MAX_AGE", "0"); err != nil {
		return nil, err
	}
	if cfg.MoviesMaxAge, err = getenvDuration("MOVIES_MAX_AGE", "0"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getenvDuration("SWEEP_INTERVAL", "0"); err != nil {
		return nil, err
	}

	if cfg.LocationCacheSize, err = getenvInt("LOCATION_CACHE_SIZE", 256); err != nil {
		return nil, err
	}
	if cfg.LocationCacheSize < 0 {
		return nil, fmt.Errorf("invalid LOCATION_CACHE_SIZE: must not be negative")
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	return cfg, nil
}

// Policy returns the per-resource freshness thresholds.
func (c *AppConfig) Policy() explorer.Policy {
	return explorer.Policy{
		explorer.ResourceWeather: c.WeatherMaxAge,
		explorer.ResourceEvent:   c.EventsMaxAge,
		explorer.ResourceMovie:   c.MoviesMaxAge,
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
