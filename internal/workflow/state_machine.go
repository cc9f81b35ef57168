// Package workflow validates and applies ticket status transitions.
package workflow

import (
	"time"

	"github.com/spec-kit/ticket-resolution/internal/access"
	"github.com/spec-kit/ticket-resolution/internal/domain"
	apperrors "github.com/spec-kit/ticket-resolution/pkg/util"
)

// Apply moves the ticket to target and stamps the lifecycle timestamps.
// The workflow is intentionally permissive: every recognized status is
// reachable from every other, and requesting the current status is a no-op
// success. The returned flag reports whether the ticket changed.
func Apply(t *domain.Ticket, target domain.TicketStatus, actor domain.Identity, now time.Time) (bool, error) {
	if !access.Authorize(actor.Role, access.ActionChangeStatus, t, actor.ActorID) {
		return false, apperrors.NewForbidden("status change not permitted")
	}
	if !target.Valid() {
		return false, apperrors.NewInvalidTransition("unrecognized target status", map[string]any{
			"target": string(target),
		})
	}
	if t.Status == target {
		return false, nil
	}

	prev := t.Status
	t.Status = target

	switch target {
	case domain.TicketStatusInProgress, domain.TicketStatusResolved:
		if t.FirstResponseAt == nil {
			at := now
			t.FirstResponseAt = &at
		}
	}

	if target == domain.TicketStatusResolved && t.ResolvedAt == nil {
		at := now
		t.ResolvedAt = &at
	}
	if target == domain.TicketStatusClosed && t.ClosedAt == nil {
		at := now
		t.ClosedAt = &at
	}

	// Reopening clears the resolution stamp so a later resolution is timed
	// against the original deadlines.
	if prev.Terminal() && !target.Terminal() {
		t.ResolvedAt = nil
	}
	if prev == domain.TicketStatusClosed && target != domain.TicketStatusClosed {
		t.ClosedAt = nil
	}

	t.UpdatedAt = now
	return true, nil
}
