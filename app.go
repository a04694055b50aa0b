package main

import (
	"catalog/internal/config"
	"catalog/internal/handlers"
	"catalog/internal/middleware"
	"catalog/internal/services"
	"catalog/internal/views"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewApp builds the Fiber application around the catalog service.
func NewApp(cfg *config.Config, service *services.CatalogService) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "catalog",
		Views:   views.NewEngine(),
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.New().String() },
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(middleware.Tracing())

	catalogHandler := handlers.NewCatalogHandler(service)
	healthHandler := handlers.NewHealthHandler(service)

	// --- Page Routes ---
	catalogHandler.RegisterRoutes(app)
	healthHandler.RegisterRoutes(app)

	if cfg.Telemetry.MetricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	if cfg.Auth.JWTSecret != "" {
		apiV1.Use(middleware.AuthRequired(cfg.Auth.JWTSecret))
	}
	catalogHandler.RegisterAPIRoutes(apiV1)

	return app
}
