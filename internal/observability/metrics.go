package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// TicketsCreated counts tickets accepted by the service, by priority.
	TicketsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_created_total",
			Help: "Tickets created, partitioned by priority",
		},
		[]string{"priority"},
	)

	// SLABreaches counts breach latches committed, by priority.
	SLABreaches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_sla_breaches_total",
			Help: "SLA breach latches committed, partitioned by priority",
		},
		[]string{"priority"},
	)

	// Escalations counts escalation flags raised, by priority.
	Escalations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_escalations_total",
			Help: "Escalations raised, partitioned by priority",
		},
		[]string{"priority"},
	)

	// StatusTransitions counts applied status changes.
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_status_transitions_total",
			Help: "Applied ticket status transitions",
		},
		[]string{"from", "to"},
	)
)

// RequestLogger records request metrics and an access log line. The matched
// route template keeps metric cardinality low.
func RequestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(status),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		logger.Debug("request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)))
		return err
	}
}
