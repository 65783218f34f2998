package domain

import (
	"fmt"
	"strings"
)

// AccessRole is a coarse visibility tag on chunks and on callers.
type AccessRole string

// Available access roles, lowest visibility first.
const (
	RolePublic  AccessRole = "public"
	RoleStudent AccessRole = "student"
	RoleStaff   AccessRole = "staff"
)

// ParseAccessRole parses a role name. The empty string yields RoleStudent.
func ParseAccessRole(s string) (AccessRole, error) {
	switch r := AccessRole(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RoleStudent, nil
	case RolePublic, RoleStudent, RoleStaff:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown access role %q", ErrInvalidInput, s)
	}
}

// IsValid returns true if the role is recognised.
func (r AccessRole) IsValid() bool {
	switch r {
	case RolePublic, RoleStudent, RoleStaff:
		return true
	default:
		return false
	}
}

// VisibleRoles returns the chunk roles a caller with this role may retrieve.
// A student sees public and student chunks; staff additionally sees staff chunks.
// The empty role is treated as student; any other unknown role sees public only.
func (r AccessRole) VisibleRoles() []AccessRole {
	switch r {
	case RoleStaff:
		return []AccessRole{RolePublic, RoleStudent, RoleStaff}
	case RoleStudent, "":
		return []AccessRole{RolePublic, RoleStudent}
	default:
		return []AccessRole{RolePublic}
	}
}

// CanSee reports whether a caller with role r may retrieve a chunk tagged tag.
func (r AccessRole) CanSee(tag AccessRole) bool {
	for _, v := range r.VisibleRoles() {
		if v == tag {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (r AccessRole) String() string {
	return string(r)
}

// RoleStrings converts roles to plain strings for metadata filters.
func RoleStrings(roles []AccessRole) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
