// Package handlers translates HTTP requests into service calls.
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-resolution/internal/persistence"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pg      *persistence.Postgres
	rdb     *persistence.Redis
	version string
}

// NewHealthHandler constructs the handler.
func NewHealthHandler(pg *persistence.Postgres, rdb *persistence.Redis, version string) *HealthHandler {
	return &HealthHandler{pg: pg, rdb: rdb, version: version}
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": h.version})
}

// Ready reports whether the backing stores answer.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	if err := h.pg.Ping(c.Context()); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	} else {
		checks["postgres"] = "ok"
	}

	if err := h.rdb.Ping(c.Context()); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"status": checks, "version": h.version})
}
