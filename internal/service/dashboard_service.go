package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-resolution/internal/domain"
	"github.com/spec-kit/ticket-resolution/internal/repository"
	"github.com/spec-kit/ticket-resolution/internal/sla"
	apperrors "github.com/spec-kit/ticket-resolution/pkg/util"
)

const (
	dashboardCacheKey = "dashboard:stats"
	dashboardCacheTTL = 30 * time.Second
)

// DashboardStats aggregates ticket volume and SLA health for staff views.
type DashboardStats struct {
	TotalTickets      int64                           `json:"total_tickets"`
	ByStatus          map[domain.TicketStatus]int64   `json:"by_status"`
	ByPriority        map[domain.TicketPriority]int64 `json:"by_priority"`
	BreachedTickets   int64                           `json:"breached_tickets"`
	EscalatedTickets  int64                           `json:"escalated_tickets"`
	SLAComplianceRate float64                         `json:"sla_compliance_rate"`
	AvgResponseHours  float64                         `json:"avg_response_hours"`
	AvgResolveHours   float64                         `json:"avg_resolve_hours"`
	AgentStats        []AgentStats                    `json:"agent_stats"`
	GeneratedAt       time.Time                       `json:"generated_at"`
}

// AgentStats summarizes one agent's workload.
type AgentStats struct {
	AgentID       string `json:"agent_id"`
	AgentName     string `json:"agent_name"`
	OpenTickets   int64  `json:"open_tickets"`
	ActiveTickets int64  `json:"active_tickets"`
	Resolved      int64  `json:"resolved"`
	Breached      int64  `json:"breached"`
}

// DashboardService computes aggregate stats over the ticket corpus, cached
// briefly in Redis to keep the listing queries off the hot path.
type DashboardService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	cache   *redis.Client
	clock   sla.Clock
	logger  *zap.Logger
}

// NewDashboardService constructs the service. A nil cache client disables
// caching.
func NewDashboardService(tickets repository.TicketRepository, users repository.UserRepository, cache *redis.Client, clock sla.Clock, logger *zap.Logger) *DashboardService {
	if clock == nil {
		clock = sla.NewSystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{tickets: tickets, users: users, cache: cache, clock: clock, logger: logger}
}

// Stats returns the dashboard aggregate. Managers and admins only.
func (s *DashboardService) Stats(ctx context.Context, actor domain.Identity) (*DashboardStats, error) {
	if actor.Role != domain.RoleManager && actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("dashboard requires manager or admin")
	}

	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	// Single pass over the full corpus; listing limit is generous because
	// dashboards tolerate slight truncation far better than N queries.
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{Limit: 10000})
	if err != nil {
		return nil, apperrors.MapStorageError(err, "tickets", nil)
	}
	total, err := s.tickets.Count(ctx)
	if err != nil {
		return nil, apperrors.MapStorageError(err, "tickets", nil)
	}

	now := s.clock.Now()
	stats := &DashboardStats{
		TotalTickets: total,
		ByStatus:     make(map[domain.TicketStatus]int64),
		ByPriority:   make(map[domain.TicketPriority]int64),
		GeneratedAt:  now,
	}

	var (
		respondedCount int64
		respondedHours float64
		resolvedCount  int64
		resolvedHours  float64
		onTimeResolved int64
		perAgent       = make(map[string]*AgentStats)
	)

	for i := range tickets {
		t := &tickets[i]
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++

		derived := sla.Derive(t, now)
		if derived.SLABreached {
			stats.BreachedTickets++
		}
		if derived.Escalated {
			stats.EscalatedTickets++
		}

		if t.FirstResponseAt != nil {
			respondedCount++
			respondedHours += t.FirstResponseAt.Sub(t.CreatedAt).Hours()
		}
		if t.ResolvedAt != nil {
			resolvedCount++
			resolvedHours += t.ResolvedAt.Sub(t.CreatedAt).Hours()
			if !t.ResolvedAt.After(t.SLAResolutionDueAt) {
				onTimeResolved++
			}
		}

		if t.AssignedAgentID != nil {
			agent := perAgent[*t.AssignedAgentID]
			if agent == nil {
				agent = &AgentStats{AgentID: *t.AssignedAgentID}
				perAgent[*t.AssignedAgentID] = agent
			}
			switch t.Status {
			case domain.TicketStatusOpen:
				agent.OpenTickets++
				agent.ActiveTickets++
			case domain.TicketStatusInProgress:
				agent.ActiveTickets++
			case domain.TicketStatusResolved, domain.TicketStatusClosed:
				agent.Resolved++
			}
			if derived.SLABreached {
				agent.Breached++
			}
		}
	}

	if respondedCount > 0 {
		stats.AvgResponseHours = respondedHours / float64(respondedCount)
	}
	if resolvedCount > 0 {
		stats.AvgResolveHours = resolvedHours / float64(resolvedCount)
		stats.SLAComplianceRate = float64(onTimeResolved) / float64(resolvedCount) * 100
	} else {
		stats.SLAComplianceRate = 100
	}

	s.attachAgentNames(ctx, perAgent)
	stats.AgentStats = make([]AgentStats, 0, len(perAgent))
	for _, agent := range perAgent {
		stats.AgentStats = append(stats.AgentStats, *agent)
	}

	s.toCache(ctx, stats)
	return stats, nil
}

func (s *DashboardService) attachAgentNames(ctx context.Context, perAgent map[string]*AgentStats) {
	if s.users == nil || len(perAgent) == 0 {
		return
	}
	for _, role := range []domain.Role{domain.RoleAgent, domain.RoleManager} {
		staff, err := s.users.ListByRole(ctx, role)
		if err != nil {
			s.logger.Warn("failed to load staff directory", zap.Error(err))
			return
		}
		for _, member := range staff {
			if agent, ok := perAgent[member.ID]; ok {
				agent.AgentName = member.Name
			}
		}
	}
}

func (s *DashboardService) fromCache(ctx context.Context) *DashboardStats {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var stats DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *DashboardService) toCache(ctx context.Context, stats *DashboardStats) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, raw, dashboardCacheTTL).Err(); err != nil {
		s.logger.Debug("dashboard cache write failed", zap.Error(err))
	}
}
