package handlers

import (
	"log"
	"time"

	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler reports whether the service can reach its database.
type HealthHandler struct {
	service *services.CatalogService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(service *services.CatalogService) *HealthHandler {
	return &HealthHandler{
		service: service,
	}
}

// RegisterRoutes registers the health route.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

// HandleHealth pings storage and reports the result.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	now := time.Now().Format(time.RFC3339)
	if err := h.service.Ping(c.UserContext()); err != nil {
		log.Printf("Health check failed: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "unhealthy",
			"time":     now,
			"database": "unreachable",
		})
	}
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"time":     now,
		"database": "connected",
	})
}
