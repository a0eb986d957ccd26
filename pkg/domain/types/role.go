package types

import "github.com/m-mizutani/goerr/v2"

// Role represents an actor's access level. Admins see every case;
// engineers see only cases whose linked records are assigned to them.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEngineer Role = "engineer"
)

// IsValid checks if the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEngineer:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", goerr.New("invalid role", goerr.V("role", s))
	}
	return role, nil
}
