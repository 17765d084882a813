package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/paperdash/internal/store"
)

var validate = validator.New()

// FrameStore is the read side of the frame history.
type FrameStore interface {
	LatestImage() (store.Frame, error)
	Recent(n int) []store.Frame
	Range(from, to time.Time) ([]store.Frame, error)
}

// RegisterRoutes wires the preview handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, frames FrameStore) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/frame/latest", func(c *fiber.Ctx) error {
		f, err := frames.LatestImage()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no frame rendered yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load frame")
		}
		c.Set(fiber.HeaderContentType, "image/png")
		c.Set("X-Frame-Id", f.ID.String())
		c.Set(fiber.HeaderLastModified, f.At.UTC().Format(time.RFC1123))
		return c.Send(f.PNG)
	})

	v1.Get("/frames", func(c *fiber.Ctx) error {
		var req recentQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"frames": frames.Recent(req.Limit)})
	})

	v1.Get("/frames/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := frames.Range(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no frames for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch frame history")
		}
		return c.JSON(fiber.Map{
			"from":   req.From,
			"to":     req.To,
			"frames": result,
		})
	})
}

// recentQuery holds query parameters for the frame list.
type recentQuery struct {
	Limit int `validate:"min=1,max=100"`
}

func (r *recentQuery) bind(c *fiber.Ctx) error {
	r.Limit = 10
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("limit must be an integer")
		}
		r.Limit = n
	}
	return nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
