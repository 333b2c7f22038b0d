package session

import (
	"slices"
	"time"

	"github.com/pgcportal/portal/api"
	"github.com/pgcportal/portal/permission"
)

// User is the authenticated principal with normalized role and permission
// sets.
type User struct {
	ID          int64    `json:"id"`
	EmployeeNo  string   `json:"employee_no"`
	Name        string   `json:"name"`
	Department  string   `json:"department,omitempty"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

func userFromAPI(u api.User) *User {
	return &User{
		ID:          u.ID,
		EmployeeNo:  u.EmployeeNo,
		Name:        u.Name,
		Department:  u.Department,
		Roles:       permission.Normalize(u.Roles),
		Permissions: permission.Normalize(u.Permissions),
	}
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = slices.Clone(u.Roles)
	c.Permissions = slices.Clone(u.Permissions)
	return &c
}

// Session is either fully present (token and user) or absent.
type Session struct {
	AccessToken string     `json:"access_token"`
	ExpiresIn   int64      `json:"expires_in"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	User        *User      `json:"user"`
}

// Valid reports whether both the token and the user are present.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && s.User != nil && (s.User.ID > 0 || s.User.EmployeeNo != "")
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		c.ExpiresAt = &t
	}
	c.User = s.User.clone()
	return &c
}

// State is a point-in-time view used by the route guard.
type State struct {
	Initialized   bool
	Authenticated bool
	UserID        int64
	EmployeeNo    string
	Roles         []string
	Permissions   []string
}

// HasRole reports whether the state carries role.
func (s State) HasRole(role permission.Role) bool {
	return slices.Contains(s.Roles, string(role))
}
