package domain

import "time"

// Role enumerates caller roles recognized by the access policy. Any other
// value denies every action.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAgent    Role = "AGENT"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Staff reports whether the role belongs to internal operators.
func (r Role) Staff() bool {
	return r == RoleAgent || r == RoleManager || r == RoleAdmin
}

// Identity is the already-authenticated caller. It is resolved by the
// authentication collaborator before any core call; the core performs no
// credential validation.
type Identity struct {
	ActorID string
	Role    Role
}

// User is the directory record for customers, agents, managers and admins.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
