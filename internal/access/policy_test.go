package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-resolution/internal/domain"
)

func sampleTicket(customerID string, agentID *string) *domain.Ticket {
	return &domain.Ticket{
		ID:              "t-1",
		CustomerID:      customerID,
		AssignedAgentID: agentID,
	}
}

func TestAuthorizeTable(t *testing.T) {
	agentID := "agent-1"
	ticket := sampleTicket("cust-1", &agentID)

	tests := []struct {
		name    string
		role    domain.Role
		action  Action
		actorID string
		want    bool
	}{
		{"customer creates", domain.RoleCustomer, ActionCreate, "cust-1", true},
		{"agent cannot create", domain.RoleAgent, ActionCreate, agentID, false},
		{"manager cannot create", domain.RoleManager, ActionCreate, "mgr-1", false},
		{"admin cannot create", domain.RoleAdmin, ActionCreate, "adm-1", false},

		{"customer views own", domain.RoleCustomer, ActionView, "cust-1", true},
		{"customer denied other ticket", domain.RoleCustomer, ActionView, "cust-2", false},
		{"agent views assigned", domain.RoleAgent, ActionView, agentID, true},
		{"agent denied unassigned", domain.RoleAgent, ActionView, "agent-2", false},
		{"manager views all", domain.RoleManager, ActionView, "mgr-1", true},
		{"admin views all", domain.RoleAdmin, ActionView, "adm-1", true},

		{"customer cannot change status", domain.RoleCustomer, ActionChangeStatus, "cust-1", false},
		{"assigned agent changes status", domain.RoleAgent, ActionChangeStatus, agentID, true},
		{"unassigned agent denied status change", domain.RoleAgent, ActionChangeStatus, "agent-2", false},
		{"manager changes status", domain.RoleManager, ActionChangeStatus, "mgr-1", true},

		{"customer cannot assign", domain.RoleCustomer, ActionAssign, "cust-1", false},
		{"agent cannot assign", domain.RoleAgent, ActionAssign, agentID, false},
		{"manager assigns", domain.RoleManager, ActionAssign, "mgr-1", true},
		{"admin assigns", domain.RoleAdmin, ActionAssign, "adm-1", true},

		{"customer comments on own", domain.RoleCustomer, ActionComment, "cust-1", true},
		{"customer denied comment elsewhere", domain.RoleCustomer, ActionComment, "cust-2", false},
		{"assigned agent comments", domain.RoleAgent, ActionComment, agentID, true},
		{"manager comments", domain.RoleManager, ActionComment, "mgr-1", true},

		{"customer denied internal comments", domain.RoleCustomer, ActionViewInternalComments, "cust-1", false},
		{"agent sees internal comments", domain.RoleAgent, ActionViewInternalComments, agentID, true},
		{"manager sees internal comments", domain.RoleManager, ActionViewInternalComments, "mgr-1", true},
		{"admin sees internal comments", domain.RoleAdmin, ActionViewInternalComments, "adm-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.role, tt.action, ticket, tt.actorID))
		})
	}
}

func TestAuthorizeUnknownRoleDeniesEverything(t *testing.T) {
	ticket := sampleTicket("cust-1", nil)
	for _, action := range []Action{ActionView, ActionCreate, ActionChangeStatus, ActionAssign, ActionComment, ActionViewInternalComments} {
		assert.False(t, Authorize(domain.Role("SUPERVISOR"), action, ticket, "cust-1"), "action %s", action)
		assert.False(t, Authorize(domain.Role(""), action, ticket, "cust-1"), "action %s", action)
	}
}

func TestAuthorizeUnassignedTicket(t *testing.T) {
	ticket := sampleTicket("cust-1", nil)
	assert.False(t, Authorize(domain.RoleAgent, ActionView, ticket, "agent-1"))
	assert.False(t, Authorize(domain.RoleAgent, ActionChangeStatus, ticket, "agent-1"))
	assert.True(t, Authorize(domain.RoleManager, ActionChangeStatus, ticket, "mgr-1"))
}

func TestAuthorizeNilTicket(t *testing.T) {
	assert.True(t, Authorize(domain.RoleCustomer, ActionCreate, nil, "cust-1"))
	assert.False(t, Authorize(domain.RoleCustomer, ActionView, nil, "cust-1"))
	assert.True(t, Authorize(domain.RoleAgent, ActionViewInternalComments, nil, "agent-1"))
}
