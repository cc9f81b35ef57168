package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/ticket-resolution/internal/api/http/handlers"
	"github.com/spec-kit/ticket-resolution/internal/auth"
	"github.com/spec-kit/ticket-resolution/internal/ratelimit"
)

// RouterDeps bundles everything the route table needs.
type RouterDeps struct {
	Auth      *auth.Middleware
	Limiter   *ratelimit.Limiter
	Health    *handlers.HealthHandler
	Tickets   *handlers.TicketsHandler
	Dashboard *handlers.DashboardHandler
}

// RegisterRoutes declares the route table. Health and metrics stay public;
// everything under /api/v1 requires a bearer token.
func RegisterRoutes(app *fiber.App, deps RouterDeps) {
	app.Get("/health/live", deps.Health.Live)
	app.Get("/health/ready", deps.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1", deps.Auth.Handle, RateLimit(deps.Limiter))

	tickets := api.Group("/tickets")
	tickets.Post("/", deps.Tickets.Create)
	tickets.Get("/", deps.Tickets.List)
	tickets.Get("/number/:number", deps.Tickets.GetByNumber)
	tickets.Get("/:id", deps.Tickets.Get)
	tickets.Post("/:id/status", deps.Tickets.ChangeStatus)
	tickets.Post("/:id/assign", deps.Tickets.Assign)
	tickets.Post("/:id/comments", deps.Tickets.AddComment)
	tickets.Get("/:id/comments", deps.Tickets.ListComments)
	tickets.Get("/:id/history", deps.Tickets.ListHistory)

	api.Get("/dashboard/stats", deps.Dashboard.Stats)
}
