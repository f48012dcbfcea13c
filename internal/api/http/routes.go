package httpapi

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/city-explorer/internal/explorer"
)

var validate = newValidator()

// newValidator reports JSON field names in validation errors.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *explorer.Service) {
	app.Get("/location", func(c *fiber.Ctx) error {
		var q searchQuery
		// Query values point into the request buffer; copy before the
		// string outlives the handler.
		q.Data = strings.Clone(c.Query("data"))
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "data query parameter is required")
		}

		loc, err := service.ResolveLocation(c.UserContext(), q.Data)
		if err != nil {
			return err
		}
		return c.JSON(loc)
	})

	app.Get("/weather", func(c *fiber.Ctx) error {
		var q coordinatesQuery
		if err := bindData(c, &q); err != nil {
			return err
		}

		rows, err := service.Weather(c.UserContext(), q.toLocation())
		if err != nil {
			return err
		}
		return c.JSON(rows)
	})

	app.Get("/events", func(c *fiber.Ctx) error {
		var q placeQuery
		if err := bindData(c, &q); err != nil {
			return err
		}

		rows, err := service.Events(c.UserContext(), q.toLocation())
		if err != nil {
			return err
		}
		return c.JSON(rows)
	})

	app.Get("/movies", func(c *fiber.Ctx) error {
		var q placeQuery
		if err := bindData(c, &q); err != nil {
			return err
		}

		rows, err := service.Movies(c.UserContext(), q.toLocation())
		if err != nil {
			return err
		}
		return c.JSON(rows)
	})
}

// searchQuery is the free-text location search.
type searchQuery struct {
	Data string `validate:"required"`
}

// coordinatesQuery is the Location JSON the weather route needs.
type coordinatesQuery struct {
	ID        int64    `json:"id" validate:"required,gt=0"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (q coordinatesQuery) toLocation() explorer.Location {
	return explorer.Location{
		ID:        q.ID,
		Latitude:  *q.Latitude,
		Longitude: *q.Longitude,
	}
}

// placeQuery is the Location JSON the events and movies routes need.
type placeQuery struct {
	ID             int64  `json:"id" validate:"required,gt=0"`
	FormattedQuery string `json:"formatted_query" validate:"required"`
}

func (q placeQuery) toLocation() explorer.Location {
	return explorer.Location{
		ID:             q.ID,
		FormattedQuery: q.FormattedQuery,
	}
}

// bindData decodes and validates the Location JSON carried in ?data=.
func bindData(c *fiber.Ctx, out any) error {
	raw := c.Query("data")
	if raw == "" {
		return fiber.NewError(fiber.StatusBadRequest, "data query parameter is required")
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "data must be a location JSON object")
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid location field: "+verrs[0].Field())
		}
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
