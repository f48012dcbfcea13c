package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/city-explorer/internal/explorer"
	"github.com/i474232898/city-explorer/internal/logger"
	"github.com/i474232898/city-explorer/internal/store"
)

const genericFailure = "Sorry, something went wrong"

// ErrorHandler is the central Fiber error handler. Every failure ends here
// and always produces a response.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := genericFailure

	var (
		fe  *fiber.Error
		nre *explorer.NoResultsError
	)
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	case errors.As(err, &nre):
		code = fiber.StatusNotFound
		message = nre.Error()
	case errors.Is(err, store.ErrUnknownLocation):
		code = fiber.StatusNotFound
		message = "unknown location id"
	case errors.Is(err, explorer.ErrInvalidQuery):
		code = fiber.StatusBadRequest
		message = err.Error()
	}

	if code >= fiber.StatusInternalServerError {
		logger.GetLogger("http").Errorw("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"error", err,
		)
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
