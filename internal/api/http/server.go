package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

// NewApp builds the preview app.
func NewApp(frames FrameStore) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "paperdash",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	RegisterRoutes(app, frames)
	return app
}

// Serve listens on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, frames FrameStore, log logrus.FieldLogger) error {
	app := NewApp(frames)
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("preview: listening")
		errCh <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		log.Info("preview: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
