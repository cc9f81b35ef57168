package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-resolution/internal/auth"
	"github.com/spec-kit/ticket-resolution/internal/service"
	apperrors "github.com/spec-kit/ticket-resolution/pkg/util"
)

// DashboardHandler serves aggregate SLA and workload stats.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats handles GET /dashboard/stats.
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	stats, err := h.dashboard.Stats(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
