package hosting

import (
	"fmt"
	"log/slog"

	"github.com/contre95/fswatcher/src/features/config"
	"github.com/contre95/fswatcher/src/features/metrics"
	"github.com/contre95/fswatcher/src/features/watching"
	"github.com/gofiber/fiber/v2"
)

// Server is the HTTP status server of the watcher.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, watchingService *watching.Service) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
		AppName:               "fswatcher",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	metrics.RegisterRoutes(app)
	config.RegisterRoutes(app, cfg)
	watching.RegisterRoutes(app, watchingService)

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	slog.Info("Starting status server", "port", s.port)
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
