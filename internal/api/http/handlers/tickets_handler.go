package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-resolution/internal/api/dto"
	"github.com/spec-kit/ticket-resolution/internal/auth"
	"github.com/spec-kit/ticket-resolution/internal/domain"
	"github.com/spec-kit/ticket-resolution/internal/service"
	apperrors "github.com/spec-kit/ticket-resolution/pkg/util"
)

// TicketsHandler serves the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets  *service.TicketService
	validate *validator.Validate
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, validate: validator.New()}
}

// Create handles POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("malformed request body", nil)
	}
	if err := h.validate.Struct(&req); err != nil {
		return validationDetails(err)
	}

	created, err := h.tickets.CreateTicket(c.Context(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTicketResponse(*created))
}

// List handles GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var query dto.ListTicketsQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("malformed query parameters", nil)
	}
	if err := h.validate.Struct(&query); err != nil {
		return validationDetails(err)
	}

	scope := service.Scope(query.Scope)
	if query.Scope == "" {
		scope = service.ScopeMyTickets
	}

	filter := service.TicketListFilter{Limit: query.Limit, Offset: query.Offset}
	if query.Status != "" {
		filter.Statuses = []domain.TicketStatus{domain.TicketStatus(strings.ToUpper(query.Status))}
	}
	if query.Priority != "" {
		filter.Priorities = []domain.TicketPriority{domain.TicketPriority(strings.ToUpper(query.Priority))}
	}

	tickets, err := h.tickets.ListTickets(c.Context(), actor, scope, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tickets": dto.NewTicketListResponse(tickets), "count": len(tickets)})
}

// Get handles GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ticket, err := h.tickets.GetTicket(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(*ticket))
}

// GetByNumber handles GET /tickets/number/:number.
func (h *TicketsHandler) GetByNumber(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	ticket, err := h.tickets.GetTicketByNumber(c.Context(), actor, c.Params("number"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(*ticket))
}

// ChangeStatus handles POST /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("malformed request body", nil)
	}
	if err := h.validate.Struct(&req); err != nil {
		return validationDetails(err)
	}

	updated, err := h.tickets.ChangeStatus(c.Context(), actor, c.Params("id"), domain.TicketStatus(strings.ToUpper(req.Status)))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(*updated))
}

// Assign handles POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("malformed request body", nil)
	}
	if err := h.validate.Struct(&req); err != nil {
		return validationDetails(err)
	}

	updated, err := h.tickets.AssignTicket(c.Context(), actor, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(*updated))
}

// AddComment handles POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("malformed request body", nil)
	}
	if err := h.validate.Struct(&req); err != nil {
		return validationDetails(err)
	}

	created, err := h.tickets.AddComment(c.Context(), actor, c.Params("id"), req.Content, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCommentResponse(*created))
}

// ListComments handles GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	comments, err := h.tickets.ListComments(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"comments": dto.NewCommentListResponse(comments), "count": len(comments)})
}

// ListHistory handles GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	actor, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	entries, err := h.tickets.ListHistory(c.Context(), actor, c.Params("id"), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"history": dto.NewHistoryListResponse(entries), "count": len(entries)})
}

func validationDetails(err error) error {
	var invalid validator.ValidationErrors
	details := map[string]any{}
	if errors.As(err, &invalid) {
		for _, fieldErr := range invalid {
			details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
		}
	}
	return apperrors.NewValidationError("request validation failed", details)
}
