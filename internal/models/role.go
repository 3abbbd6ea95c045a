package models

import "fmt"

// Role is the privilege level a user holds on a specific site. Roles are a
// closed set; anything else coming in from a client is a validation error,
// never a silently-accepted string.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleAgent Role = "Agent"
	RoleUser  Role = "User"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleAgent, RoleUser}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleAgent, RoleUser:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleUser:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }
