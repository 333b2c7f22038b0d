package guard

import (
	"strings"

	"github.com/pgcportal/portal/permission"
)

// Route is one page of the portal.
type Route struct {
	Path   string
	Title  string
	Roles  []permission.Role
	Public bool
}

var (
	anyUser  = []permission.Role{permission.RoleUser, permission.RoleLeader, permission.RoleAdmin, permission.RoleSuperAdmin}
	leaders  = []permission.Role{permission.RoleLeader, permission.RoleAdmin, permission.RoleSuperAdmin}
	admins   = []permission.Role{permission.RoleAdmin, permission.RoleSuperAdmin}
	superAdm = []permission.Role{permission.RoleSuperAdmin}
)

// DefaultRoutes returns the portal's page table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/login", Title: "Sign in", Public: true},
		{Path: "/logout", Title: "Sign out", Public: true},
		{Path: "/catalog", Title: "Catalog", Roles: anyUser},
		{Path: "/cart", Title: "Cart", Roles: anyUser},
		{Path: "/applications", Title: "My applications", Roles: anyUser},
		{Path: "/applications/:id", Title: "Application", Roles: anyUser},
		{Path: "/assets", Title: "My assets", Roles: anyUser},
		{Path: "/approvals", Title: "Approvals", Roles: leaders},
		{Path: "/analytics", Title: "Analytics", Roles: leaders},
		{Path: "/outbound", Title: "Outbound", Roles: admins},
		{Path: "/inbound", Title: "Inbound", Roles: admins},
		{Path: "/admin/assets", Title: "Assets", Roles: admins},
		{Path: "/admin/catalog", Title: "Catalog admin", Roles: admins},
		{Path: "/admin/stocks", Title: "Stock", Roles: admins},
		{Path: "/admin/rbac", Title: "Roles and permissions", Roles: superAdm},
		{Path: "/admin/crud", Title: "Data admin", Roles: superAdm},
		{Path: "/admin/crud/:resource", Title: "Data admin", Roles: superAdm},
	}
}

// Table matches request paths to routes.
type Table struct {
	exact    map[string]Route
	patterns []Route
}

// NewTable indexes routes. Later duplicates win.
func NewTable(routes []Route) *Table {
	t := &Table{exact: make(map[string]Route, len(routes))}
	for _, r := range routes {
		r.Path = cleanPath(r.Path)
		if strings.Contains(r.Path, "/:") {
			t.patterns = append(t.patterns, r)
			continue
		}
		t.exact[r.Path] = r
	}
	return t
}

// Match returns the route for path: an exact match, else the first
// ":param" pattern with the same number of segments.
func (t *Table) Match(path string) (Route, bool) {
	path = cleanPath(path)
	if r, ok := t.exact[path]; ok {
		return r, true
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for _, r := range t.patterns {
		if matchSegments(strings.Split(strings.Trim(r.Path, "/"), "/"), segs) {
			return r, true
		}
	}
	return Route{}, false
}

func matchSegments(pattern, segs []string) bool {
	if len(pattern) != len(segs) {
		return false
	}
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if p != segs[i] {
			return false
		}
	}
	return true
}

// cleanPath drops the query and fragment and any trailing slash.
func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = "/" + strings.Trim(strings.TrimSpace(p), "/")
	return p
}
