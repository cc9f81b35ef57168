package sla

import (
	"time"

	"github.com/spec-kit/ticket-resolution/internal/domain"
	apperrors "github.com/spec-kit/ticket-resolution/pkg/util"
)

// Window bundles the maximum allowed time from creation to first response and
// to full resolution.
type Window struct {
	Response   time.Duration
	Resolution time.Duration
}

var windows = map[domain.TicketPriority]Window{
	domain.TicketPriorityCritical: {Response: 1 * time.Hour, Resolution: 4 * time.Hour},
	domain.TicketPriorityHigh:     {Response: 2 * time.Hour, Resolution: 8 * time.Hour},
	domain.TicketPriorityMedium:   {Response: 4 * time.Hour, Resolution: 24 * time.Hour},
	domain.TicketPriorityLow:      {Response: 8 * time.Hour, Resolution: 48 * time.Hour},
}

// Windows returns the SLA windows for a priority. An unrecognized priority is
// a validation error, never a fallback.
func Windows(priority domain.TicketPriority) (Window, error) {
	w, ok := windows[priority]
	if !ok {
		return Window{}, apperrors.NewValidationError("unrecognized priority", map[string]any{
			"priority": string(priority),
		})
	}
	return w, nil
}

// DueTimestamps derives the response and resolution deadlines for a ticket
// created at createdAt with the given priority.
func DueTimestamps(priority domain.TicketPriority, createdAt time.Time) (time.Time, time.Time, error) {
	w, err := Windows(priority)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return createdAt.Add(w.Response), createdAt.Add(w.Resolution), nil
}
