package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeCreated   TicketChangeType = "CREATED"
	ChangeTypeStatus    TicketChangeType = "STATUS_CHANGED"
	ChangeTypeAssignee  TicketChangeType = "ASSIGNED"
	ChangeTypeEscalated TicketChangeType = "ESCALATED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID         string
	TicketID   string
	ActorID    *string
	ActorRole  *Role
	ChangeType TicketChangeType
	Field      string
	OldValue   string
	NewValue   string
	CreatedAt  time.Time
}
