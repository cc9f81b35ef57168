// Package http wires the HTTP surface: routes, middleware, and error mapping.
package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-resolution/internal/auth"
	"github.com/spec-kit/ticket-resolution/internal/observability"
	"github.com/spec-kit/ticket-resolution/internal/ratelimit"
	apperrors "github.com/spec-kit/ticket-resolution/pkg/util"
)

// ErrorHandler maps errors to the JSON error envelope. Unrecognized errors
// never leak details to the client.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) {
			if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("path", c.Path()),
					zap.String("code", domainErr.Code),
					zap.Error(err))
			}
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
					"details": domainErr.Details,
				},
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "INTERNAL_ERROR",
					"message": fiberErr.Message,
				},
			})
		}

		logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "INTERNAL_ERROR",
				"message": "internal server error",
			},
		})
	}
}

// RegisterMiddlewares installs the shared middleware chain.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger) {
	app.Use(recover.New())
	app.Use(observability.RequestLogger(logger))
}

// RateLimit bounds mutating requests per authenticated actor. Reads pass
// through untouched.
func RateLimit(limiter *ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete:
		default:
			return c.Next()
		}

		identity, ok := auth.IdentityFromContext(c)
		if !ok {
			return c.Next()
		}

		allowed, retryAfter, err := limiter.Allow(c.Context(), identity.ActorID, "mutate")
		if err != nil {
			// Limiter outages must not take writes down with them.
			return c.Next()
		}
		if !allowed {
			return apperrors.NewRateLimited("too many requests", int(retryAfter.Seconds())+1)
		}
		return c.Next()
	}
}
