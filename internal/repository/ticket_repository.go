package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-resolution/internal/domain"
)

// ErrStaleTicket reports that the row changed between the caller's read and
// its write. The caller's snapshot is no longer a valid basis for the update.
var ErrStaleTicket = errors.New("ticket modified since read")

// TicketFilter captures listing parameters. Exactly one of CustomerID and
// AssignedAgentID is set for scoped queries; neither for company-wide ones.
type TicketFilter struct {
	CustomerID      *string
	AssignedAgentID *string
	Statuses        []domain.TicketStatus
	Priorities      []domain.TicketPriority
	ActiveOnly      bool
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence. Writes carry the full
// record so SLA latches persist atomically with the mutation that caused
// them. Update takes the updated_at observed at read time and refuses the
// write with ErrStaleTicket when the row moved on, so racing writers cannot
// overwrite each other's latches.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket, readAt time.Time) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Count(ctx context.Context) (int64, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, customer_id, assigned_agent_id, title, description,
               status, priority, sla_response_due_at, sla_resolution_due_at,
               first_response_at, resolved_at, closed_at, sla_breached, escalated, escalated_at,
               created_at, updated_at`

// Create inserts the ticket. The human-readable number is minted by the
// database sequence so concurrent creates never collide.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, customer_id, assigned_agent_id, title, description,
            status, priority, sla_response_due_at, sla_resolution_due_at, sla_breached, escalated,
            created_at, updated_at)
        VALUES ('TKT-' || to_char($11::timestamptz, 'YYYY') || '-' || lpad(nextval('ticket_number_seq')::text, 6, '0'),
            $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
        RETURNING id, ticket_number`
	return r.pool.QueryRow(ctx, query,
		ticket.CustomerID,
		ticket.AssignedAgentID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.SLAResponseDueAt,
		ticket.SLAResolutionDueAt,
		ticket.SLABreached,
		ticket.Escalated,
		ticket.CreatedAt,
	).Scan(&ticket.ID, &ticket.TicketNumber)
}

// Update writes the full snapshot, guarded by the updated_at the caller
// observed when it read the row. Zero rows means a concurrent writer got
// there first and the caller must reload.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket, readAt time.Time) error {
	const query = `
        UPDATE tickets SET assigned_agent_id=$1, status=$2, first_response_at=$3, resolved_at=$4,
            closed_at=$5, sla_breached=$6, escalated=$7, escalated_at=$8, updated_at=$9
        WHERE id=$10 AND updated_at=$11`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.AssignedAgentID,
		ticket.Status,
		ticket.FirstResponseAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.SLABreached,
		ticket.Escalated,
		ticket.EscalatedAt,
		ticket.UpdatedAt,
		ticket.ID,
		readAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStaleTicket
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_number=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, number)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ActiveOnly {
		args = append(args, domain.TicketStatusResolved, domain.TicketStatusClosed)
		clauses = append(clauses, fmt.Sprintf("status NOT IN ($%d,$%d)", len(args)-1, len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.CustomerID,
		&ticket.AssignedAgentID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.SLAResponseDueAt,
		&ticket.SLAResolutionDueAt,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.SLABreached,
		&ticket.Escalated,
		&ticket.EscalatedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
