// Package dto defines the HTTP request and response shapes.
package dto

// CreateTicketRequest opens a new ticket.
type CreateTicketRequest struct {
	Title       string `json:"title" validate:"required,max=500"`
	Description string `json:"description" validate:"required"`
	Priority    string `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// ChangeStatusRequest moves a ticket through the lifecycle.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AssignTicketRequest routes a ticket to an agent.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id" validate:"required"`
}

// CreateCommentRequest appends to the ticket thread.
type CreateCommentRequest struct {
	Content    string `json:"content" validate:"required"`
	IsInternal bool   `json:"is_internal"`
}

// ListTicketsQuery captures listing query parameters.
type ListTicketsQuery struct {
	Scope    string `query:"scope"`
	Status   string `query:"status"`
	Priority string `query:"priority"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=200"`
	Offset   int    `query:"offset" validate:"omitempty,min=0"`
}
