package domain

import (
	"fmt"
	"strings"
)

// Role is the audience a connection joins as.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "USER"
)

const (
	AdminRoom   = "admin"
	tablePrefix = "table:"
)

// Scope describes who is listening: an administrator feed or one customer order.
// Build it with AdminScope, CustomerScope or NewScope; the zero value is invalid.
type Scope struct {
	role    Role
	tableID string
}

func AdminScope() Scope {
	return Scope{role: RoleAdmin}
}

func CustomerScope(tableID string) (Scope, error) {
	tableID = strings.TrimSpace(tableID)
	if tableID == "" {
		return Scope{}, fmt.Errorf("%w: customer scope requires a table id", ErrInvalidScope)
	}
	return Scope{role: RoleCustomer, tableID: tableID}, nil
}

// NewScope validates a role/identifier pair received from outside the process.
// An identifier given with the admin role is ignored.
func NewScope(role Role, tableID string) (Scope, error) {
	switch role {
	case RoleAdmin:
		return AdminScope(), nil
	case RoleCustomer:
		return CustomerScope(tableID)
	default:
		return Scope{}, fmt.Errorf("%w: unknown role %q", ErrInvalidScope, role)
	}
}

func (s Scope) Role() Role      { return s.role }
func (s Scope) TableID() string { return s.tableID }

// Valid reports whether s was produced by one of the constructors.
func (s Scope) Valid() bool {
	switch s.role {
	case RoleAdmin:
		return true
	case RoleCustomer:
		return s.tableID != ""
	}
	return false
}

// Room is the server-side routing group for the scope.
func (s Scope) Room() string {
	if s.role == RoleCustomer {
		return TableRoom(s.tableID)
	}
	return AdminRoom
}

// JoinPayload is the announcement sent for this scope.
func (s Scope) JoinPayload() JoinPayload {
	return JoinPayload{Role: s.role, TableID: s.tableID}
}

func (s Scope) String() string {
	if s.tableID == "" {
		return string(s.role)
	}
	return string(s.role) + "/" + s.tableID
}

func TableRoom(tableID string) string {
	return tablePrefix + tableID
}
