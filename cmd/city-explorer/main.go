package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/city-explorer/internal/api/http"
	"github.com/i474232898/city-explorer/internal/config"
	"github.com/i474232898/city-explorer/internal/explorer"
	"github.com/i474232898/city-explorer/internal/explorer/providers"
	"github.com/i474232898/city-explorer/internal/logger"
	"github.com/i474232898/city-explorer/internal/metrics"
	"github.com/i474232898/city-explorer/internal/scheduler"
	"github.com/i474232898/city-explorer/internal/store"
	"github.com/i474232898/city-explorer/internal/telemetry"
)

const serviceName = "city-explorer"

func main() {
	if err := run(); err != nil {
		logger.GetLogger("main").Fatalf("%v", err)
	}
}

// run owns every resource it opens; returning lets the deferred cleanup
// execute before main exits.
func run() error {
	log := logger.GetLogger("main")

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	defer logger.Sync()
	log = logger.GetLogger("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			log.Errorf("error flushing traces: %v", err)
		}
	}()

	// Store lifecycle: opened here, injected everywhere else.
	st, pinger, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeStore()

	cache, err := explorer.NewCoordinator(st, cfg.Policy())
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	sources := explorer.Sources{
		Geocoder: providers.NewGoogleGeocoder(providerOptions(httpClient, cfg.Geocode)),
		Weather:  providers.NewDarkSkyWeather(providerOptions(httpClient, cfg.Weather)),
		Events:   providers.NewEventbriteEvents(providerOptions(httpClient, cfg.Eventbrite)),
		Movies:   providers.NewTMDBMovies(providerOptions(httpClient, cfg.Movies)),
	}

	service, err := explorer.NewService(st, cache, sources, cfg.LocationCacheSize)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	sched := scheduler.New(cache, cfg.SweepInterval)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New())
	app.Use(metrics.Middleware())
	app.Use(accessLog(logger.L().Named("access")))

	app.Get("/metrics", metrics.Handler())
	httpapi.RegisterHealth(app, serviceName, pinger)
	httpapi.RegisterRoutes(app, service)

	listenErr := make(chan error, 1)
	go func() {
		log.Infof("listening on port %s", cfg.Port)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	// Wait for termination signal or a failed listener.
	select {
	case <-ctx.Done():
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("fiber server stopped: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.AppConfig) (explorer.Store, httpapi.Pinger, func(), error) {
	if cfg.DatabaseDriver == "memory" {
		return store.NewMemoryStore(), nil, func() {}, nil
	}

	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	closeFn := func() {
		if err := db.Close(); err != nil {
			logger.GetLogger("main").Errorf("error closing store: %v", err)
		}
	}
	return db, db, closeFn, nil
}

func providerOptions(client *http.Client, p config.ProviderConfig) providers.Options {
	return providers.Options{
		Client:  client,
		APIKey:  p.APIKey,
		BaseURL: p.BaseURL,
	}
}

// accessLog writes one structured line per request. Errors are rendered
// here so the logged status matches the response.
func accessLog(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		log.Info("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
		)
		return nil
	}
}
