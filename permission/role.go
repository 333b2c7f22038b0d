package permission

import (
	"fmt"
	"slices"
	"strings"
)

// Role is one of the portal's closed set of roles.
type Role string

const (
	RolePublic     Role = "PUBLIC"
	RoleUser       Role = "USER"
	RoleLeader     Role = "LEADER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Roles lists every known role, lowest privilege first.
var Roles = []Role{RolePublic, RoleUser, RoleLeader, RoleAdmin, RoleSuperAdmin}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(Roles, r) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// NormalizeRoles normalizes raw role strings and drops anything outside the
// known set.
func NormalizeRoles(raw []string) []Role {
	out := make([]Role, 0, len(raw))
	for _, s := range Normalize(raw) {
		if r, err := ParseRole(s); err == nil {
			out = append(out, r)
		}
	}
	return out
}

// Normalize trims, upper-cases, de-duplicates and sorts values. Empty strings
// are dropped. The result is never nil.
func Normalize(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// IsSuperAdmin reports whether roles contains SUPER_ADMIN, case-insensitively.
func IsSuperAdmin(roles []string) bool {
	for _, r := range roles {
		if Role(strings.ToUpper(strings.TrimSpace(r))) == RoleSuperAdmin {
			return true
		}
	}
	return false
}
