package dto

import (
	"time"

	"github.com/spec-kit/ticket-resolution/internal/domain"
	"github.com/spec-kit/ticket-resolution/internal/service"
)

// TicketResponse is the full ticket view, including the read-time SLA fields.
type TicketResponse struct {
	ID                 string     `json:"id"`
	TicketNumber       string     `json:"ticket_number"`
	CustomerID         string     `json:"customer_id"`
	AssignedAgentID    *string    `json:"assigned_agent_id,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	SLAResponseDueAt   time.Time  `json:"sla_response_due_at"`
	SLAResolutionDueAt time.Time  `json:"sla_resolution_due_at"`
	FirstResponseAt    *time.Time `json:"first_response_at,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	MinutesUntilDue    *int64     `json:"minutes_until_due"`
	IsOverdue          bool       `json:"is_overdue"`
	SLABreached        bool       `json:"sla_breached"`
	Escalated          bool       `json:"escalated"`
	EscalatedAt        *time.Time `json:"escalated_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewTicketResponse maps a ticket snapshot to the wire shape.
func NewTicketResponse(t service.TicketWithSLA) TicketResponse {
	return TicketResponse{
		ID:                 t.Ticket.ID,
		TicketNumber:       t.Ticket.TicketNumber,
		CustomerID:         t.Ticket.CustomerID,
		AssignedAgentID:    t.Ticket.AssignedAgentID,
		Title:              t.Ticket.Title,
		Description:        t.Ticket.Description,
		Status:             string(t.Ticket.Status),
		Priority:           string(t.Ticket.Priority),
		SLAResponseDueAt:   t.Ticket.SLAResponseDueAt,
		SLAResolutionDueAt: t.Ticket.SLAResolutionDueAt,
		FirstResponseAt:    t.Ticket.FirstResponseAt,
		ResolvedAt:         t.Ticket.ResolvedAt,
		ClosedAt:           t.Ticket.ClosedAt,
		MinutesUntilDue:    t.Derived.MinutesUntilDue,
		IsOverdue:          t.Derived.IsOverdue,
		SLABreached:        t.Derived.SLABreached,
		Escalated:          t.Derived.Escalated,
		EscalatedAt:        t.Ticket.EscalatedAt,
		CreatedAt:          t.Ticket.CreatedAt,
		UpdatedAt:          t.Ticket.UpdatedAt,
	}
}

// NewTicketListResponse maps a listing.
func NewTicketListResponse(tickets []service.TicketWithSLA) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		result = append(result, NewTicketResponse(t))
	}
	return result
}

// CommentResponse is the wire shape of one thread entry.
type CommentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	AuthorID   string    `json:"author_id"`
	AuthorRole string    `json:"author_role"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		AuthorID:   c.AuthorID,
		AuthorRole: string(c.AuthorRole),
		Content:    c.Content,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt,
	}
}

// NewCommentListResponse maps a thread.
func NewCommentListResponse(comments []domain.Comment) []CommentResponse {
	result := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		result = append(result, NewCommentResponse(c))
	}
	return result
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	ActorID    *string   `json:"actor_id,omitempty"`
	ActorRole  *string   `json:"actor_role,omitempty"`
	ChangeType string    `json:"change_type"`
	Field      string    `json:"field"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewHistoryListResponse maps the audit trail.
func NewHistoryListResponse(entries []domain.TicketHistory) []HistoryResponse {
	result := make([]HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		var role *string
		if entry.ActorRole != nil {
			r := string(*entry.ActorRole)
			role = &r
		}
		result = append(result, HistoryResponse{
			ID:         entry.ID,
			TicketID:   entry.TicketID,
			ActorID:    entry.ActorID,
			ActorRole:  role,
			ChangeType: string(entry.ChangeType),
			Field:      entry.Field,
			OldValue:   entry.OldValue,
			NewValue:   entry.NewValue,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return result
}
