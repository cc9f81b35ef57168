// Package worker hosts background loops that run beside the HTTP server.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-resolution/internal/service"
)

// SLAMonitor periodically sweeps active tickets for missed deadlines. Breach
// and escalation latching is idempotent, so overlapping runs after a slow
// sweep are harmless.
type SLAMonitor struct {
	tickets  *service.TicketService
	interval time.Duration
	logger   *zap.Logger
}

// NewSLAMonitor constructs the monitor.
func NewSLAMonitor(tickets *service.TicketService, interval time.Duration, logger *zap.Logger) *SLAMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAMonitor{tickets: tickets, interval: interval, logger: logger}
}

// Run sweeps until the context is canceled. One sweep happens immediately so
// a restart does not delay breach detection by a full interval.
func (m *SLAMonitor) Run(ctx context.Context) {
	m.logger.Info("sla monitor started", zap.Duration("interval", m.interval))

	m.sweep(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("sla monitor stopped")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *SLAMonitor) sweep(ctx context.Context) {
	start := time.Now()
	stats, err := m.tickets.CheckAllSLAs(ctx)
	if err != nil {
		m.logger.Error("sla sweep failed", zap.Error(err))
		return
	}
	m.logger.Debug("sla sweep finished",
		zap.Int("checked", stats.Checked),
		zap.Int("breached", stats.Breached),
		zap.Int("escalated", stats.Escalated),
		zap.Duration("took", time.Since(start)))
}
