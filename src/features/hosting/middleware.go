package hosting

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LogAllRequestsMiddleware logs every request, failures at error level.
func LogAllRequestsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		if status >= 400 {
			slog.Error("HTTP request",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"duration", duration.String(),
				"error", err,
			)
		} else {
			slog.Debug("HTTP request",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"duration", duration.String(),
			)
		}
		return err
	}
}
