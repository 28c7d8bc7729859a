package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/voice-scheduler/internal/api/http/handlers"
	"github.com/spec-kit/voice-scheduler/internal/auth"
	"github.com/spec-kit/voice-scheduler/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Dialogue       *handlers.DialogueHandler
	Staff          *handlers.StaffHandler
	Meetings       *handlers.MeetingsHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	api := app.Group("/api")
	api.Post("/query", cfg.Dialogue.Query)
	api.Get("/greeting", cfg.Dialogue.Greeting)
	api.Post("/sessions/:id/turns", cfg.Dialogue.Turn)
	api.Delete("/sessions/:id", cfg.Dialogue.Reset)
	api.Get("/store_info", cfg.Dialogue.StoreInfo)
	api.Get("/staff", cfg.Staff.List)

	admin := api.Group("/meetings", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/", cfg.Meetings.List)
	admin.Get("/:id", cfg.Meetings.Get)

	authGroup := app.Group("/auth")
	authGroup.Post("/admin/login", cfg.Auth.AdminLogin)
}
