package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// RegisterRoutes exposes the Prometheus collectors on /metrics.
func RegisterRoutes(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(Handler()))
}
