package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterHealth adds GET /health. With a nil pinger it always reports ok.
func RegisterHealth(app *fiber.App, service string, db Pinger) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()

			if err := db.Ping(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":  "unavailable",
					"service": service,
				})
			}
		}

		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": service,
		})
	})
}
