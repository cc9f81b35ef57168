package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-resolution/internal/access"
	"github.com/spec-kit/ticket-resolution/internal/comment"
	"github.com/spec-kit/ticket-resolution/internal/domain"
	"github.com/spec-kit/ticket-resolution/internal/events"
	"github.com/spec-kit/ticket-resolution/internal/observability"
	"github.com/spec-kit/ticket-resolution/internal/repository"
	"github.com/spec-kit/ticket-resolution/internal/sla"
	"github.com/spec-kit/ticket-resolution/internal/workflow"
	apperrors "github.com/spec-kit/ticket-resolution/pkg/util"
)

const maxTitleLength = 500

// monitorIdentity attributes latches committed outside a user request.
var monitorIdentity = domain.Identity{ActorID: "sla-monitor", Role: domain.RoleAdmin}

// Scope names the listing shapes callers may request.
type Scope string

const (
	ScopeMyTickets Scope = "my-tickets"
	ScopeAssigned  Scope = "assigned"
	ScopeAll       Scope = "all"
)

// TicketWithSLA pairs a ticket snapshot with its read-time SLA fields.
type TicketWithSLA struct {
	Ticket  domain.Ticket
	Derived sla.Derived
}

// TicketService coordinates ticket workflows. It is stateless per call: each
// operation loads a snapshot, computes the next state, and hands it back to
// the storage collaborator.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	clock      sla.Clock
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Clock       sla.Clock
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter describes optional listing filters on top of a scope.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// SweepStats summarizes one SLA monitor pass.
type SweepStats struct {
	Checked   int
	Breached  int
	Escalated int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = sla.NewSystemClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		clock:      clock,
		logger:     logger,
	}
}

// CreateTicket opens a ticket for the calling customer and stamps its SLA
// deadlines from the priority.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Identity, input TicketCreateInput) (*TicketWithSLA, error) {
	if !access.Authorize(actor.Role, access.ActionCreate, nil, actor.ActorID) {
		return nil, apperrors.NewForbidden("only customers open tickets")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title must not be empty", map[string]any{"field": "title"})
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, apperrors.NewValidationError("title too long", map[string]any{
			"field":       "title",
			"max_length":  maxTitleLength,
			"rune_length": utf8.RuneCountInString(title),
		})
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description must not be empty", map[string]any{"field": "description"})
	}

	now := s.clock.Now()
	responseDue, resolutionDue, err := sla.DueTimestamps(input.Priority, now)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		CustomerID:         actor.ActorID,
		Title:              title,
		Description:        description,
		Status:             domain.TicketStatusOpen,
		Priority:           input.Priority,
		SLAResponseDueAt:   responseDue,
		SLAResolutionDueAt: resolutionDue,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapStorageError(err, "ticket", nil)
	}

	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeCreated, "general", "", "Ticket created", now)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			TicketNumber: ticket.TicketNumber,
			Priority:     ticket.Priority,
			Title:        ticket.Title,
		},
	})
	observability.TicketsCreated.WithLabelValues(string(ticket.Priority)).Inc()

	return &TicketWithSLA{Ticket: *ticket, Derived: sla.Derive(ticket, now)}, nil
}

// GetTicket fetches a ticket with fresh SLA fields, enforcing visibility.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Identity, ticketID string) (*TicketWithSLA, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !access.Authorize(actor.Role, access.ActionView, ticket, actor.ActorID) {
		return nil, apperrors.NewForbidden("ticket not visible to caller")
	}

	derived := s.refreshSLA(ctx, actor, ticket)
	return &TicketWithSLA{Ticket: *ticket, Derived: derived}, nil
}

// GetTicketByNumber resolves a ticket by its human-readable number.
func (s *TicketService) GetTicketByNumber(ctx context.Context, actor domain.Identity, number string) (*TicketWithSLA, error) {
	ticket, err := s.tickets.GetByNumber(ctx, number)
	if err != nil {
		return nil, apperrors.MapStorageError(err, "ticket", map[string]any{"ticket_number": number})
	}
	if !access.Authorize(actor.Role, access.ActionView, ticket, actor.ActorID) {
		return nil, apperrors.NewForbidden("ticket not visible to caller")
	}

	derived := s.refreshSLA(ctx, actor, ticket)
	return &TicketWithSLA{Ticket: *ticket, Derived: derived}, nil
}

// ListTickets answers scope-filtered queries. Scopes map to the access
// policy: my-tickets lists the caller's own, assigned lists an agent's
// workload, all is reserved for managers and admins.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Identity, scope Scope, filter TicketListFilter) ([]TicketWithSLA, error) {
	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}

	switch scope {
	case ScopeMyTickets:
		if !actor.Role.Valid() {
			return nil, apperrors.NewForbidden("unknown role")
		}
		actorID := actor.ActorID
		repoFilter.CustomerID = &actorID
	case ScopeAssigned:
		if !actor.Role.Staff() {
			return nil, apperrors.NewForbidden("assigned scope requires a staff role")
		}
		actorID := actor.ActorID
		repoFilter.AssignedAgentID = &actorID
	case ScopeAll:
		if !access.Authorize(actor.Role, access.ActionView, nil, actor.ActorID) {
			return nil, apperrors.NewForbidden("listing all tickets requires manager or admin")
		}
	default:
		return nil, apperrors.NewValidationError("unrecognized scope", map[string]any{"scope": string(scope)})
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapStorageError(err, "tickets", nil)
	}

	result := make([]TicketWithSLA, 0, len(tickets))
	for i := range tickets {
		derived := s.refreshSLA(ctx, actor, &tickets[i])
		result = append(result, TicketWithSLA{Ticket: tickets[i], Derived: derived})
	}
	return result, nil
}

// ChangeStatus applies a status transition and persists the resulting
// snapshot, including any SLA latch, in a single write.
func (s *TicketService) ChangeStatus(ctx context.Context, actor domain.Identity, ticketID string, target domain.TicketStatus) (*TicketWithSLA, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	oldStatus := ticket.Status
	readAt := ticket.UpdatedAt
	changed, err := workflow.Apply(ticket, target, actor, now)
	if err != nil {
		return nil, err
	}

	derived := sla.Derive(ticket, now)
	newBreach := derived.SLABreached && !ticket.SLABreached
	newEscalation := derived.Escalated && !ticket.Escalated
	latched := sla.Latch(ticket, derived, now)

	if changed || latched {
		if err := s.tickets.Update(ctx, ticket, readAt); err != nil {
			return nil, apperrors.MapStorageError(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
	}

	if changed {
		s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeStatus, "status", string(oldStatus), string(ticket.Status), now)
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
		observability.StatusTransitions.WithLabelValues(string(oldStatus), string(ticket.Status)).Inc()
	}
	s.publishLatchEvents(ctx, actor, ticket, newBreach, newEscalation, now)

	return &TicketWithSLA{Ticket: *ticket, Derived: derived}, nil
}

// AssignTicket routes a ticket to an agent. The assignee must hold the AGENT
// or MANAGER role.
func (s *TicketService) AssignTicket(ctx context.Context, actor domain.Identity, ticketID, agentID string) (*TicketWithSLA, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !access.Authorize(actor.Role, access.ActionAssign, ticket, actor.ActorID) {
		return nil, apperrors.NewForbidden("assignment requires manager or admin")
	}

	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		return nil, apperrors.MapStorageError(err, "user", map[string]any{"user_id": agentID})
	}
	if agent.Role != domain.RoleAgent && agent.Role != domain.RoleManager {
		return nil, apperrors.NewValidationError("assignee must be an agent or manager", map[string]any{
			"user_id": agentID,
			"role":    string(agent.Role),
		})
	}

	now := s.clock.Now()
	oldAssignee := ""
	if ticket.AssignedAgentID != nil {
		oldAssignee = *ticket.AssignedAgentID
	}
	readAt := ticket.UpdatedAt
	ticket.AssignedAgentID = &agent.ID
	ticket.UpdatedAt = now

	derived := sla.Derive(ticket, now)
	newBreach := derived.SLABreached && !ticket.SLABreached
	newEscalation := derived.Escalated && !ticket.Escalated
	sla.Latch(ticket, derived, now)

	if err := s.tickets.Update(ctx, ticket, readAt); err != nil {
		return nil, apperrors.MapStorageError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeAssignee, "assigned_agent", oldAssignee, agent.ID, now)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload:  events.TicketAssignedPayload{AssignedAgentID: ticket.AssignedAgentID},
	})
	s.publishLatchEvents(ctx, actor, ticket, newBreach, newEscalation, now)

	return &TicketWithSLA{Ticket: *ticket, Derived: derived}, nil
}

// AddComment appends to the ticket thread. The first staff comment counts as
// the ticket's first response.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Identity, ticketID, content string, isInternal bool) (*domain.Comment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !access.Authorize(actor.Role, access.ActionComment, ticket, actor.ActorID) {
		return nil, apperrors.NewForbidden("commenting not permitted on this ticket")
	}
	if isInternal && !access.Authorize(actor.Role, access.ActionViewInternalComments, ticket, actor.ActorID) {
		return nil, apperrors.NewForbidden("internal notes are restricted to staff")
	}

	now := s.clock.Now()
	c, err := comment.New(ticket.ID, actor, content, isInternal, now)
	if err != nil {
		return nil, err
	}

	if err := s.comments.Create(ctx, c); err != nil {
		return nil, apperrors.MapStorageError(err, "comment", nil)
	}

	// The stamp follows the insert: firstResponseAt is never cleared, so it
	// must not be committed for a comment that failed to land.
	if ticket.FirstResponseAt == nil && (actor.Role == domain.RoleAgent || actor.Role == domain.RoleManager) {
		at := now
		readAt := ticket.UpdatedAt
		ticket.FirstResponseAt = &at
		ticket.UpdatedAt = now
		derived := sla.Derive(ticket, now)
		newBreach := derived.SLABreached && !ticket.SLABreached
		newEscalation := derived.Escalated && !ticket.Escalated
		sla.Latch(ticket, derived, now)
		if err := s.tickets.Update(ctx, ticket, readAt); err != nil {
			return nil, apperrors.MapStorageError(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		s.publishLatchEvents(ctx, actor, ticket, newBreach, newEscalation, now)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCommentAddedPayload{
			CommentID:      c.ID,
			AuthorRole:     c.AuthorRole,
			IsInternal:     c.IsInternal,
			ContentPreview: contentPreview(c.Content, 120),
		},
	})
	return c, nil
}

// ListComments returns the ticket thread visible to the caller, oldest first.
func (s *TicketService) ListComments(ctx context.Context, actor domain.Identity, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !access.Authorize(actor.Role, access.ActionView, ticket, actor.ActorID) {
		return nil, apperrors.NewForbidden("ticket not visible to caller")
	}

	thread, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapStorageError(err, "comments", nil)
	}
	comment.Sort(thread)
	return comment.Visible(thread, actor.Role), nil
}

// ListHistory returns the audit trail. Customers only see status and
// assignment entries.
func (s *TicketService) ListHistory(ctx context.Context, actor domain.Identity, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !access.Authorize(actor.Role, access.ActionView, ticket, actor.ActorID) {
		return nil, apperrors.NewForbidden("ticket not visible to caller")
	}

	entries, err := s.history.ListByTicket(ctx, ticket.ID, limit, offset)
	if err != nil {
		return nil, apperrors.MapStorageError(err, "ticket history", nil)
	}
	if actor.Role != domain.RoleCustomer {
		return entries, nil
	}
	allowed := make([]domain.TicketHistory, 0, len(entries))
	for _, entry := range entries {
		if entry.ChangeType == domain.ChangeTypeStatus || entry.ChangeType == domain.ChangeTypeAssignee {
			allowed = append(allowed, entry)
		}
	}
	return allowed, nil
}

// CheckAllSLAs sweeps active tickets, committing breach and escalation
// latches. The SLA monitor worker calls this periodically.
func (s *TicketService) CheckAllSLAs(ctx context.Context) (SweepStats, error) {
	stats := SweepStats{}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{ActiveOnly: true, Limit: 1000})
	if err != nil {
		return stats, apperrors.MapStorageError(err, "tickets", nil)
	}

	now := s.clock.Now()
	for i := range tickets {
		ticket := &tickets[i]
		stats.Checked++

		derived := sla.Derive(ticket, now)
		newBreach := derived.SLABreached && !ticket.SLABreached
		newEscalation := derived.Escalated && !ticket.Escalated
		if !sla.Latch(ticket, derived, now) {
			continue
		}
		readAt := ticket.UpdatedAt
		ticket.UpdatedAt = now
		if err := s.tickets.Update(ctx, ticket, readAt); err != nil {
			s.logger.Warn("failed to persist SLA latch",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if newBreach {
			stats.Breached++
		}
		if newEscalation {
			stats.Escalated++
			s.recordHistory(ctx, monitorIdentity, ticket.ID, domain.ChangeTypeEscalated, "escalated", "false", "true", now)
		}
		s.publishLatchEvents(ctx, monitorIdentity, ticket, newBreach, newEscalation, now)
	}
	return stats, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapStorageError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// refreshSLA derives read-time fields and commits the one-way latch when it
// newly fires. Reads stay idempotent otherwise.
func (s *TicketService) refreshSLA(ctx context.Context, actor domain.Identity, ticket *domain.Ticket) sla.Derived {
	now := s.clock.Now()
	derived := sla.Derive(ticket, now)
	newBreach := derived.SLABreached && !ticket.SLABreached
	newEscalation := derived.Escalated && !ticket.Escalated
	if !sla.Latch(ticket, derived, now) {
		return derived
	}
	readAt := ticket.UpdatedAt
	ticket.UpdatedAt = now
	if err := s.tickets.Update(ctx, ticket, readAt); err != nil {
		s.logger.Warn("failed to persist SLA latch",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
		return derived
	}
	s.publishLatchEvents(ctx, actor, ticket, newBreach, newEscalation, now)
	return derived
}

func (s *TicketService) publishLatchEvents(ctx context.Context, actor domain.Identity, ticket *domain.Ticket, newBreach, newEscalation bool, now time.Time) {
	if newBreach {
		observability.SLABreaches.WithLabelValues(string(ticket.Priority)).Inc()
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketSLABreached,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.TicketSLABreachedPayload{
				Priority:        ticket.Priority,
				ResolutionDueAt: ticket.SLAResolutionDueAt,
			},
		})
	}
	if newEscalation {
		observability.Escalations.WithLabelValues(string(ticket.Priority)).Inc()
		deadline := ticket.SLAResponseDueAt
		if ticket.FirstResponseAt != nil || ticket.Status != domain.TicketStatusOpen {
			deadline = ticket.SLAResolutionDueAt
		}
		minutesOverdue := int64(0)
		if now.After(deadline) {
			minutesOverdue = int64(now.Sub(deadline) / time.Minute)
		}
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketEscalated,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.TicketEscalatedPayload{
				Priority:       ticket.Priority,
				MinutesOverdue: minutesOverdue,
			},
		})
	}
}

func (s *TicketService) recordHistory(ctx context.Context, actor domain.Identity, ticketID string, changeType domain.TicketChangeType, field, oldValue, newValue string, now time.Time) {
	if s.history == nil {
		return
	}
	actorID := actor.ActorID
	role := actor.Role
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		ActorID:    &actorID,
		ActorRole:  &role,
		ChangeType: changeType,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
		CreatedAt:  now,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record history", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func contentPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
