package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-resolution/internal/domain"
	"github.com/spec-kit/ticket-resolution/internal/events"
	"github.com/spec-kit/ticket-resolution/internal/repository"
	"github.com/spec-kit/ticket-resolution/internal/sla"
	apperrors "github.com/spec-kit/ticket-resolution/pkg/util"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	nextID  int

	// beforeUpdate, when set, runs once at the start of the next Update to
	// let a test interleave a concurrent writer.
	beforeUpdate func()
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ticket.ID = fmt.Sprintf("ticket-%d", r.nextID)
	ticket.TicketNumber = fmt.Sprintf("TKT-%d-%06d", ticket.CreatedAt.Year(), r.nextID)
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket, readAt time.Time) error {
	if r.beforeUpdate != nil {
		hook := r.beforeUpdate
		r.beforeUpdate = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !stored.UpdatedAt.Equal(readAt) {
		return repository.ErrStaleTicket
	}
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *fakeTicketRepo) overwrite(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = ticket
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.TicketNumber == number {
			found := ticket
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.AssignedAgentID != nil {
			if ticket.AssignedAgentID == nil || *ticket.AssignedAgentID != *filter.AssignedAgentID {
				continue
			}
		}
		if filter.ActiveOnly && ticket.Status.Terminal() {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		result = append(result, ticket)
	}
	return result, nil
}

func (r *fakeTicketRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.tickets)), nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

type fakeCommentRepo struct {
	mu        sync.Mutex
	comments  []domain.Comment
	nextSeq   int64
	createErr error
}

func (r *fakeCommentRepo) Create(_ context.Context, c *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextSeq++
	c.Seq = r.nextSeq
	c.ID = fmt.Sprintf("comment-%d", r.nextSeq)
	r.comments = append(r.comments, *c)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Comment
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	return result, nil
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r *fakeUserRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.users {
		if user.Role == role {
			result = append(result, user)
		}
	}
	return result, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = fmt.Sprintf("history-%d", len(r.entries)+1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, e := range d.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

func (d *recordingDispatcher) typesSeen() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	seen := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		seen = append(seen, e.Type)
	}
	return seen
}

type fixture struct {
	tickets    *fakeTicketRepo
	comments   *fakeCommentRepo
	users      *fakeUserRepo
	history    *fakeHistoryRepo
	dispatcher *recordingDispatcher
}

func newFixture() *fixture {
	return &fixture{
		tickets:  newFakeTicketRepo(),
		comments: &fakeCommentRepo{},
		users: &fakeUserRepo{users: map[string]domain.User{
			"agent-1":    {ID: "agent-1", Name: "Dana", Role: domain.RoleAgent},
			"manager-1":  {ID: "manager-1", Name: "Sam", Role: domain.RoleManager},
			"customer-1": {ID: "customer-1", Name: "Ivy", Role: domain.RoleCustomer},
		}},
		history:    &fakeHistoryRepo{},
		dispatcher: &recordingDispatcher{},
	}
}

func (f *fixture) service(at time.Time) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo:  f.tickets,
		CommentRepo: f.comments,
		UserRepo:    f.users,
		HistoryRepo: f.history,
		Dispatcher:  f.dispatcher,
		Clock:       sla.FixedClock{Instant: at},
	})
}

var (
	customer = domain.Identity{ActorID: "customer-1", Role: domain.RoleCustomer}
	stranger = domain.Identity{ActorID: "customer-2", Role: domain.RoleCustomer}
	agent    = domain.Identity{ActorID: "agent-1", Role: domain.RoleAgent}
	manager  = domain.Identity{ActorID: "manager-1", Role: domain.RoleManager}
)

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func createTicket(t *testing.T, f *fixture, priority domain.TicketPriority) *TicketWithSLA {
	t.Helper()
	svc := f.service(baseTime)
	created, err := svc.CreateTicket(context.Background(), customer, TicketCreateInput{
		Title:       "Cannot log in",
		Description: "Password reset loops back to the login page",
		Priority:    priority,
	})
	require.NoError(t, err)
	return created
}

func TestCreateTicketSetsNumberAndDeadlines(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityCritical)

	assert.Equal(t, "TKT-2025-000001", created.Ticket.TicketNumber)
	assert.Equal(t, domain.TicketStatusOpen, created.Ticket.Status)
	assert.Equal(t, baseTime.Add(time.Hour), created.Ticket.SLAResponseDueAt)
	assert.Equal(t, baseTime.Add(4*time.Hour), created.Ticket.SLAResolutionDueAt)
	require.NotNil(t, created.Derived.MinutesUntilDue)
	assert.Equal(t, int64(60), *created.Derived.MinutesUntilDue)
	assert.False(t, created.Derived.IsOverdue)
	assert.False(t, created.Derived.SLABreached)

	assert.Contains(t, f.dispatcher.typesSeen(), events.EventTicketCreated)
	require.Len(t, f.history.entries, 1)
	assert.Equal(t, domain.ChangeTypeCreated, f.history.entries[0].ChangeType)
}

func TestCreateTicketNumbersComeFromStorage(t *testing.T) {
	f := newFixture()
	first := createTicket(t, f, domain.TicketPriorityLow)
	second := createTicket(t, f, domain.TicketPriorityLow)

	assert.Equal(t, "TKT-2025-000001", first.Ticket.TicketNumber)
	assert.Equal(t, "TKT-2025-000002", second.Ticket.TicketNumber)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture()
	svc := f.service(baseTime)
	ctx := context.Background()

	_, err := svc.CreateTicket(ctx, customer, TicketCreateInput{
		Title: "   ", Description: "details", Priority: domain.TicketPriorityLow,
	})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.CreateTicket(ctx, customer, TicketCreateInput{
		Title: "ok", Description: "", Priority: domain.TicketPriorityLow,
	})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.CreateTicket(ctx, customer, TicketCreateInput{
		Title: "ok", Description: "details", Priority: domain.TicketPriority("URGENT"),
	})
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestCreateTicketForbiddenForAgents(t *testing.T) {
	f := newFixture()
	svc := f.service(baseTime)

	_, err := svc.CreateTicket(context.Background(), agent, TicketCreateInput{
		Title: "ok", Description: "details", Priority: domain.TicketPriorityLow,
	})
	requireCode(t, err, "FORBIDDEN")
}

func TestGetTicketVisibility(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityMedium)
	svc := f.service(baseTime)
	ctx := context.Background()

	got, err := svc.GetTicket(ctx, customer, created.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Ticket.ID, got.Ticket.ID)

	_, err = svc.GetTicket(ctx, stranger, created.Ticket.ID)
	requireCode(t, err, "FORBIDDEN")

	_, err = svc.GetTicket(ctx, manager, "missing")
	requireCode(t, err, "NOT_FOUND")
}

func TestGetTicketByNumber(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityMedium)
	svc := f.service(baseTime)
	ctx := context.Background()

	got, err := svc.GetTicketByNumber(ctx, customer, created.Ticket.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, created.Ticket.ID, got.Ticket.ID)

	_, err = svc.GetTicketByNumber(ctx, stranger, created.Ticket.TicketNumber)
	requireCode(t, err, "FORBIDDEN")

	_, err = svc.GetTicketByNumber(ctx, manager, "TKT-1999-000001")
	requireCode(t, err, "NOT_FOUND")
}

func TestGetTicketLatchesBreach(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityCritical)

	// Two hours in: the one hour response deadline is gone.
	late := f.service(baseTime.Add(2 * time.Hour))
	got, err := late.GetTicket(context.Background(), manager, created.Ticket.ID)
	require.NoError(t, err)
	assert.True(t, got.Derived.IsOverdue)
	assert.True(t, got.Derived.SLABreached)
	assert.True(t, got.Derived.Escalated)
	require.NotNil(t, got.Derived.MinutesUntilDue)
	assert.Equal(t, int64(0), *got.Derived.MinutesUntilDue)

	stored, err := f.tickets.GetByID(context.Background(), created.Ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.SLABreached)
	assert.True(t, stored.Escalated)
	require.NotNil(t, stored.EscalatedAt)

	// Latches committed on a read are attributed to the reader.
	breaches := f.dispatcher.ofType(events.EventTicketSLABreached)
	require.Len(t, breaches, 1)
	assert.Equal(t, manager, breaches[0].Actor)
	escalations := f.dispatcher.ofType(events.EventTicketEscalated)
	require.Len(t, escalations, 1)
	assert.Equal(t, manager, escalations[0].Actor)
}

func TestChangeStatusAuthorization(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityMedium)
	svc := f.service(baseTime.Add(10 * time.Minute))
	ctx := context.Background()

	_, err := svc.ChangeStatus(ctx, agent, created.Ticket.ID, domain.TicketStatusInProgress)
	requireCode(t, err, "FORBIDDEN")

	_, err = svc.ChangeStatus(ctx, customer, created.Ticket.ID, domain.TicketStatusClosed)
	requireCode(t, err, "FORBIDDEN")

	_, err = svc.AssignTicket(ctx, manager, created.Ticket.ID, "agent-1")
	require.NoError(t, err)

	updated, err := svc.ChangeStatus(ctx, agent, created.Ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Ticket.Status)
	require.NotNil(t, updated.Ticket.FirstResponseAt)
}

func TestChangeStatusStampsAndClears(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityLow)
	svc := f.service(baseTime.Add(30 * time.Minute))
	ctx := context.Background()

	resolved, err := svc.ChangeStatus(ctx, manager, created.Ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	require.NotNil(t, resolved.Ticket.FirstResponseAt)
	require.NotNil(t, resolved.Ticket.ResolvedAt)
	assert.Nil(t, resolved.Derived.MinutesUntilDue)

	reopened, err := svc.ChangeStatus(ctx, manager, created.Ticket.ID, domain.TicketStatusOpen)
	require.NoError(t, err)
	assert.Nil(t, reopened.Ticket.ResolvedAt)
	require.NotNil(t, reopened.Ticket.FirstResponseAt)

	_, err = svc.ChangeStatus(ctx, manager, created.Ticket.ID, domain.TicketStatus("ARCHIVED"))
	requireCode(t, err, "INVALID_TRANSITION")

	// Same target is a no-op success.
	same, err := svc.ChangeStatus(ctx, manager, created.Ticket.ID, domain.TicketStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, same.Ticket.Status)
}

func TestChangeStatusLatePersistsBreach(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityCritical)

	late := f.service(baseTime.Add(5 * time.Hour))
	resolved, err := late.ChangeStatus(context.Background(), manager, created.Ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	assert.True(t, resolved.Derived.SLABreached)
	assert.Nil(t, resolved.Derived.MinutesUntilDue)

	stored, err := f.tickets.GetByID(context.Background(), created.Ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.SLABreached)
}

func TestChangeStatusConflictsWithConcurrentWriter(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityMedium)
	svc := f.service(baseTime.Add(20 * time.Minute))
	ctx := context.Background()

	// Another writer lands between this call's read and its write.
	f.tickets.beforeUpdate = func() {
		row := created.Ticket
		row.Status = domain.TicketStatusInProgress
		row.UpdatedAt = row.UpdatedAt.Add(time.Second)
		f.tickets.overwrite(row)
	}

	_, err := svc.ChangeStatus(ctx, manager, created.Ticket.ID, domain.TicketStatusResolved)
	requireCode(t, err, "DEPENDENCY_FAILURE")

	// The concurrent write survives untouched.
	stored, err := f.tickets.GetByID(ctx, created.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
	assert.Nil(t, stored.ResolvedAt)
}

func TestAssignTicketRules(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityHigh)
	svc := f.service(baseTime)
	ctx := context.Background()

	_, err := svc.AssignTicket(ctx, agent, created.Ticket.ID, "agent-1")
	requireCode(t, err, "FORBIDDEN")

	_, err = svc.AssignTicket(ctx, manager, created.Ticket.ID, "customer-1")
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.AssignTicket(ctx, manager, created.Ticket.ID, "missing")
	requireCode(t, err, "NOT_FOUND")

	assigned, err := svc.AssignTicket(ctx, manager, created.Ticket.ID, "agent-1")
	require.NoError(t, err)
	require.NotNil(t, assigned.Ticket.AssignedAgentID)
	assert.Equal(t, "agent-1", *assigned.Ticket.AssignedAgentID)
	assert.Contains(t, f.dispatcher.typesSeen(), events.EventTicketAssigned)
}

func TestAddCommentRules(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityMedium)
	svc := f.service(baseTime.Add(15 * time.Minute))
	ctx := context.Background()

	_, err := svc.AddComment(ctx, customer, created.Ticket.ID, "   ", false)
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = svc.AddComment(ctx, customer, created.Ticket.ID, "note to self", true)
	requireCode(t, err, "FORBIDDEN")

	_, err = svc.AddComment(ctx, stranger, created.Ticket.ID, "drive-by", false)
	requireCode(t, err, "FORBIDDEN")

	// Customer comments never count as a first response.
	_, err = svc.AddComment(ctx, customer, created.Ticket.ID, "any update?", false)
	require.NoError(t, err)
	stored, _ := f.tickets.GetByID(ctx, created.Ticket.ID)
	assert.Nil(t, stored.FirstResponseAt)

	_, err = svc.AssignTicket(ctx, manager, created.Ticket.ID, "agent-1")
	require.NoError(t, err)

	c, err := svc.AddComment(ctx, agent, created.Ticket.ID, "looking into it", false)
	require.NoError(t, err)
	assert.Equal(t, "looking into it", c.Content)
	stored, _ = f.tickets.GetByID(ctx, created.Ticket.ID)
	require.NotNil(t, stored.FirstResponseAt)
	firstResponse := *stored.FirstResponseAt

	// A second staff comment must not move the stamp.
	_, err = svc.AddComment(ctx, agent, created.Ticket.ID, "found the cause", true)
	require.NoError(t, err)
	stored, _ = f.tickets.GetByID(ctx, created.Ticket.ID)
	assert.Equal(t, firstResponse, *stored.FirstResponseAt)
}

func TestAddCommentInsertFailureLeavesResponseUnstamped(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityMedium)
	svc := f.service(baseTime.Add(10 * time.Minute))
	ctx := context.Background()

	_, err := svc.AssignTicket(ctx, manager, created.Ticket.ID, "agent-1")
	require.NoError(t, err)

	f.comments.createErr = errors.New("insert failed")
	_, err = svc.AddComment(ctx, agent, created.Ticket.ID, "first reply", false)
	requireCode(t, err, "DEPENDENCY_FAILURE")

	// A reply that never landed is not a first response.
	stored, err := f.tickets.GetByID(ctx, created.Ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FirstResponseAt)

	f.comments.createErr = nil
	_, err = svc.AddComment(ctx, agent, created.Ticket.ID, "first reply", false)
	require.NoError(t, err)
	stored, err = f.tickets.GetByID(ctx, created.Ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FirstResponseAt)
}

func TestListCommentsFiltersInternal(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityMedium)
	svc := f.service(baseTime.Add(time.Minute))
	ctx := context.Background()

	_, err := svc.AssignTicket(ctx, manager, created.Ticket.ID, "agent-1")
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, customer, created.Ticket.ID, "it is still broken", false)
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, agent, created.Ticket.ID, "root cause in billing", true)
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, agent, created.Ticket.ID, "fix rolling out", false)
	require.NoError(t, err)

	visible, err := svc.ListComments(ctx, customer, created.Ticket.ID)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	for _, c := range visible {
		assert.False(t, c.IsInternal)
	}

	full, err := svc.ListComments(ctx, agent, created.Ticket.ID)
	require.NoError(t, err)
	assert.Len(t, full, 3)
}

func TestListTicketsScopes(t *testing.T) {
	f := newFixture()
	mine := createTicket(t, f, domain.TicketPriorityLow)
	svc := f.service(baseTime)
	ctx := context.Background()

	other, err := svc.CreateTicket(ctx, stranger, TicketCreateInput{
		Title: "Billing issue", Description: "Charged twice", Priority: domain.TicketPriorityMedium,
	})
	require.NoError(t, err)

	own, err := svc.ListTickets(ctx, customer, ScopeMyTickets, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.Ticket.ID, own[0].Ticket.ID)

	_, err = svc.ListTickets(ctx, customer, ScopeAll, TicketListFilter{})
	requireCode(t, err, "FORBIDDEN")

	_, err = svc.ListTickets(ctx, customer, ScopeAssigned, TicketListFilter{})
	requireCode(t, err, "FORBIDDEN")

	_, err = svc.ListTickets(ctx, manager, Scope("everything"), TicketListFilter{})
	requireCode(t, err, "VALIDATION_FAILED")

	all, err := svc.ListTickets(ctx, manager, ScopeAll, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.AssignTicket(ctx, manager, other.Ticket.ID, "agent-1")
	require.NoError(t, err)
	assigned, err := svc.ListTickets(ctx, agent, ScopeAssigned, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, other.Ticket.ID, assigned[0].Ticket.ID)
}

func TestCheckAllSLAs(t *testing.T) {
	f := newFixture()
	critical := createTicket(t, f, domain.TicketPriorityCritical)
	low := createTicket(t, f, domain.TicketPriorityLow)

	// Three hours in: CRITICAL response (1h) is blown, LOW response (8h) is not.
	sweep := f.service(baseTime.Add(3 * time.Hour))
	stats, err := sweep.CheckAllSLAs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Checked)
	assert.Equal(t, 1, stats.Breached)
	assert.Equal(t, 1, stats.Escalated)

	stored, err := f.tickets.GetByID(context.Background(), critical.Ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.SLABreached)
	assert.True(t, stored.Escalated)

	untouched, err := f.tickets.GetByID(context.Background(), low.Ticket.ID)
	require.NoError(t, err)
	assert.False(t, untouched.SLABreached)

	seen := f.dispatcher.typesSeen()
	assert.Contains(t, seen, events.EventTicketSLABreached)
	assert.Contains(t, seen, events.EventTicketEscalated)

	breaches := f.dispatcher.ofType(events.EventTicketSLABreached)
	require.Len(t, breaches, 1)
	assert.Equal(t, "sla-monitor", breaches[0].Actor.ActorID)

	// A second sweep at the same instant is a no-op.
	stats, err = sweep.CheckAllSLAs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Breached)
	assert.Equal(t, 0, stats.Escalated)
}

func TestListHistoryCustomerFilter(t *testing.T) {
	f := newFixture()
	created := createTicket(t, f, domain.TicketPriorityMedium)
	svc := f.service(baseTime.Add(time.Minute))
	ctx := context.Background()

	_, err := svc.AssignTicket(ctx, manager, created.Ticket.ID, "agent-1")
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, manager, created.Ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)

	full, err := svc.ListHistory(ctx, manager, created.Ticket.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, full, 3)

	limited, err := svc.ListHistory(ctx, customer, created.Ticket.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	for _, entry := range limited {
		assert.NotEqual(t, domain.ChangeTypeCreated, entry.ChangeType)
	}
}
