package watching

import (
	"github.com/gofiber/fiber/v2"
)

// Handler serves the polling loop state.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetStatus returns the loop counters and the registered watchers.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	names := []string{}
	for _, w := range h.service.manager.Watchers() {
		names = append(names, w.Name())
	}
	return c.JSON(fiber.Map{
		"status":   h.service.Status(),
		"watchers": names,
	})
}
