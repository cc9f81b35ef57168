package events

import (
	"time"

	"github.com/spec-kit/ticket-resolution/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventTicketSLABreached   EventType = "ticket_sla_breached"
)

// Event represents a domain event emitted by services. Delivery is
// best-effort; emitters never block on it.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	TicketID  string          `json:"ticket_id"`
	Actor     domain.Identity `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketNumber string                `json:"ticket_number"`
	Priority     domain.TicketPriority `json:"priority"`
	Title        string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedAgentID *string `json:"assigned_agent_id,omitempty"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID      string      `json:"comment_id"`
	AuthorRole     domain.Role `json:"author_role"`
	IsInternal     bool        `json:"is_internal"`
	ContentPreview string      `json:"content_preview"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Priority       domain.TicketPriority `json:"priority"`
	MinutesOverdue int64                 `json:"minutes_overdue"`
}

// TicketSLABreachedPayload payload.
type TicketSLABreachedPayload struct {
	Priority        domain.TicketPriority `json:"priority"`
	ResolutionDueAt time.Time             `json:"resolution_due_at"`
}
