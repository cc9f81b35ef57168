package sla

import (
	"time"

	"github.com/spec-kit/ticket-resolution/internal/domain"
)

// Clock supplies current time. Injected so tests can control it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewSystemClock returns a Clock backed by the wall clock.
func NewSystemClock() Clock { return systemClock{} }

// FixedClock always reports the same instant.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time { return c.Instant }

// Derived holds the read-time SLA fields. MinutesUntilDue is nil once the
// ticket is resolved or closed (no active deadline).
type Derived struct {
	MinutesUntilDue *int64
	IsOverdue       bool
	SLABreached     bool
	Escalated       bool
}

// Derive recomputes the SLA fields for a ticket snapshot at the given time.
// It is pure: latching the breach back onto the record is the caller's
// responsibility (see Latch).
//
// The controlling deadline is the response deadline while the ticket is OPEN
// without a first response, and the resolution deadline for any other active
// status. The breach flag is permanent: it stays true once the controlling
// deadline was missed while the ticket was active, or once resolution landed
// past the resolution deadline.
func Derive(t *domain.Ticket, now time.Time) Derived {
	d := Derived{SLABreached: t.SLABreached, Escalated: t.Escalated}

	if deadline, active := controllingDeadline(t); active {
		mins := minutesUntil(deadline, now)
		d.MinutesUntilDue = &mins
		d.IsOverdue = now.After(deadline)
		if d.IsOverdue {
			d.SLABreached = true
		}
	}

	if t.ResolvedAt != nil && t.ResolvedAt.After(t.SLAResolutionDueAt) {
		d.SLABreached = true
	}

	if d.SLABreached || (d.IsOverdue && highSeverity(t.Priority)) {
		d.Escalated = true
	}
	return d
}

// Latch writes the one-way flags back onto the ticket record and reports
// whether anything newly latched. The caller persists the record atomically
// with whatever mutation triggered the derivation.
func Latch(t *domain.Ticket, d Derived, now time.Time) bool {
	changed := false
	if d.SLABreached && !t.SLABreached {
		t.SLABreached = true
		changed = true
	}
	if d.Escalated && !t.Escalated {
		t.Escalated = true
		at := now
		t.EscalatedAt = &at
		changed = true
	}
	return changed
}

func controllingDeadline(t *domain.Ticket) (time.Time, bool) {
	if t.Status.Terminal() {
		return time.Time{}, false
	}
	if t.FirstResponseAt == nil && t.Status == domain.TicketStatusOpen {
		return t.SLAResponseDueAt, true
	}
	return t.SLAResolutionDueAt, true
}

func minutesUntil(deadline, now time.Time) int64 {
	diff := deadline.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int64((diff + time.Minute - 1) / time.Minute)
}

func highSeverity(p domain.TicketPriority) bool {
	return p == domain.TicketPriorityHigh || p == domain.TicketPriorityCritical
}
