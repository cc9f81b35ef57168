// Package access centralizes every authorization decision as a single table
// over (role, action) pairs instead of conditionals scattered across services.
package access

import "github.com/spec-kit/ticket-resolution/internal/domain"

// Action enumerates the operations the policy gates.
type Action string

const (
	ActionView                 Action = "VIEW"
	ActionCreate               Action = "CREATE"
	ActionChangeStatus         Action = "CHANGE_STATUS"
	ActionAssign               Action = "ASSIGN"
	ActionComment              Action = "COMMENT"
	ActionViewInternalComments Action = "VIEW_INTERNAL_COMMENTS"
)

type scope int

const (
	denied scope = iota
	granted
	ifOwner    // allowed when the actor is the ticket's customer
	ifAssignee // allowed when the actor is the ticket's assigned agent
)

var table = map[domain.Role]map[Action]scope{
	domain.RoleCustomer: {
		ActionCreate:  granted,
		ActionView:    ifOwner,
		ActionComment: ifOwner,
	},
	domain.RoleAgent: {
		ActionView:                 ifAssignee,
		ActionChangeStatus:         ifAssignee,
		ActionComment:              ifAssignee,
		ActionViewInternalComments: granted,
	},
	domain.RoleManager: {
		ActionView:                 granted,
		ActionChangeStatus:         granted,
		ActionAssign:               granted,
		ActionComment:              granted,
		ActionViewInternalComments: granted,
	},
	domain.RoleAdmin: {
		ActionView:                 granted,
		ActionChangeStatus:         granted,
		ActionAssign:               granted,
		ActionComment:              granted,
		ActionViewInternalComments: granted,
	},
}

// Authorize decides whether role may perform action on the ticket. A nil
// ticket is valid for actions that have no target yet (CREATE) and for
// visibility checks. Unknown roles deny every action.
func Authorize(role domain.Role, action Action, ticket *domain.Ticket, actorID string) bool {
	actions, ok := table[role]
	if !ok {
		return false
	}
	switch actions[action] {
	case granted:
		return true
	case ifOwner:
		return ticket != nil && ticket.CustomerID == actorID
	case ifAssignee:
		return ticket != nil && ticket.AssignedAgentID != nil && *ticket.AssignedAgentID == actorID
	default:
		return false
	}
}
