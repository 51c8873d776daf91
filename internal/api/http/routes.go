package httpapi

import (
	"bytes"
	"errors"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/weather-lookup/internal/details"
	"github.com/i474232898/weather-lookup/internal/export"
	"github.com/i474232898/weather-lookup/internal/observability"
	"github.com/i474232898/weather-lookup/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, info *details.Service, metrics *observability.Metrics) {
	api := app.Group("/api")

	api.Get("/weather/history/:locationId", func(c *fiber.Ctx) error {
		id, err := parseID(c, "locationId")
		if err != nil {
			return err
		}

		records, err := service.History(c.UserContext(), id)
		if err != nil {
			return toFiberError(err, "location not found", "failed to fetch weather history")
		}
		return c.JSON(records)
	})

	api.Get("/weather/:location", func(c *fiber.Ctx) error {
		// Params alias the request buffer, which fasthttp reuses.
		input, err := url.PathUnescape(utils.CopyString(c.Params("location")))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "malformed location")
		}

		report, err := service.Lookup(c.UserContext(), input)
		if err != nil {
			return toFiberError(err, "Location not found", "failed to fetch weather data")
		}
		return c.JSON(report)
	})

	api.Delete("/weather/record/:id", func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return err
		}

		if err := service.DeleteRecord(c.UserContext(), id); err != nil {
			return toFiberError(err, "record not found", "failed to delete record")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	api.Get("/locations", func(c *fiber.Ctx) error {
		locations, err := service.Locations(c.UserContext())
		if err != nil {
			return toFiberError(err, "", "failed to list locations")
		}
		if locations == nil {
			locations = []weather.Location{}
		}
		return c.JSON(locations)
	})

	api.Get("/locations/details/:locationId", func(c *fiber.Ctx) error {
		id, err := parseID(c, "locationId")
		if err != nil {
			return err
		}

		loc, err := service.Location(c.UserContext(), id)
		if err != nil {
			return toFiberError(err, "location not found", "failed to fetch location")
		}
		return c.JSON(info.Details(c.UserContext(), loc))
	})

	api.Post("/exports/weather/:locationId", func(c *fiber.Ctx) error {
		id, err := parseID(c, "locationId")
		if err != nil {
			return err
		}

		var req exportRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		format, err := export.ParseFormat(req.Format)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := service.Location(c.UserContext(), id)
		if err != nil {
			return toFiberError(err, "location not found", "failed to fetch location")
		}
		records, err := service.History(c.UserContext(), id)
		if err != nil {
			return toFiberError(err, "location not found", "failed to fetch weather history")
		}

		var buf bytes.Buffer
		if err := export.Render(&buf, format, loc, records); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to export weather data")
		}
		metrics.ObserveExport(string(format))

		c.Attachment(format.FileName())
		c.Set(fiber.HeaderContentType, format.ContentType())
		return c.Send(buf.Bytes())
	})
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// exportRequest is the body of the export endpoint.
type exportRequest struct {
	Format string `json:"format" validate:"required,oneof=json csv pdf markdown xml"`
}

func parseID(c *fiber.Ctx, param string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+param)
	}
	return id, nil
}

// toFiberError maps domain errors to HTTP errors. A rejected query keeps its
// reason as the message.
func toFiberError(err error, notFound, internal string) error {
	var invalid *weather.ValidationError
	switch {
	case errors.As(err, &invalid):
		return fiber.NewError(fiber.StatusBadRequest, invalid.Error())
	case errors.Is(err, weather.ErrLocationNotFound), errors.Is(err, weather.ErrRecordNotFound):
		if notFound == "" {
			notFound = "not found"
		}
		return fiber.NewError(fiber.StatusNotFound, notFound)
	case errors.Is(err, weather.ErrProvidersUnavailable), errors.Is(err, weather.ErrNoProviders):
		return fiber.NewError(fiber.StatusBadGateway, "weather providers unavailable")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, internal)
	}
}
