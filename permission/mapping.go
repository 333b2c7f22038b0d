package permission

import (
	"maps"
	"strings"
)

// Mapping is an immutable snapshot of route and action requirements.
// Callers must not mutate the slices it hands out.
type Mapping struct {
	Routes  map[string][]string
	Actions map[string][]string
}

// RouteRule is one route entry of a guard configuration.
type RouteRule struct {
	Path        string   `json:"path" yaml:"path"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

// ActionRule is one action entry of a guard configuration.
type ActionRule struct {
	ID          string   `json:"id" yaml:"id"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

// GuardConfig is the server-supplied route/action requirement document.
type GuardConfig struct {
	Routes  []RouteRule  `json:"routes" yaml:"routes"`
	Actions []ActionRule `json:"actions" yaml:"actions"`
}

// Empty reports whether the config carries no entries at all.
func (c GuardConfig) Empty() bool {
	return len(c.Routes) == 0 && len(c.Actions) == 0
}

var defaultRoutes = map[string][]string{
	"/approvals":     {"APPLICATION:APPROVE"},
	"/outbound":      {"OUTBOUND:OPERATE"},
	"/inbound":       {"INBOUND:OPERATE"},
	"/admin/assets":  {"ASSET:MANAGE"},
	"/admin/catalog": {"SKU:MANAGE"},
	"/admin/stocks":  {"STOCK:MANAGE"},
	"/admin/rbac":    {"RBAC:MANAGE"},
	"/admin/crud":    {"RBAC:MANAGE"},
	"/analytics":     {"REPORT:VIEW"},
}

var defaultActions = map[string][]string{
	"application.approve":       {"APPLICATION:APPROVE"},
	"application.assign-assets": {"APPLICATION:ASSIGN"},
	"admin.category.delete":     {"CATEGORY:MANAGE"},
	"admin.sku.delete":          {"SKU:MANAGE"},
	"admin.asset.delete":        {"ASSET:MANAGE"},
	"admin.stock.adjust":        {"STOCK:MANAGE"},
	"admin.rbac.bind":           {"RBAC:MANAGE"},
	"outbound.confirm-pickup":   {"OUTBOUND:OPERATE"},
	"outbound.ship":             {"OUTBOUND:OPERATE"},
	"inbound.confirm":           {"INBOUND:OPERATE"},
	"copilot.query":             {"REPORT:VIEW"},
}

// DefaultMapping returns the compiled-in requirements.
func DefaultMapping() Mapping {
	return Mapping{
		Routes:  normalizeTable(defaultRoutes),
		Actions: normalizeTable(defaultActions),
	}
}

func normalizeTable(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = Normalize(v)
	}
	return out
}

// Apply builds a Mapping from cfg. A config with no route and no action
// entries yields the defaults. Entries with an empty key are skipped; a
// repeated key keeps the union of its permissions.
func Apply(cfg GuardConfig) Mapping {
	if cfg.Empty() {
		return DefaultMapping()
	}

	m := Mapping{
		Routes:  make(map[string][]string, len(cfg.Routes)),
		Actions: make(map[string][]string, len(cfg.Actions)),
	}
	for _, r := range cfg.Routes {
		path := normalizePath(r.Path)
		if path == "" {
			continue
		}
		m.Routes[path] = Normalize(append(m.Routes[path], r.Permissions...))
	}
	for _, a := range cfg.Actions {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			continue
		}
		m.Actions[id] = Normalize(append(m.Actions[id], a.Permissions...))
	}
	return m
}

// Reset returns the compiled-in defaults.
func Reset() Mapping {
	return DefaultMapping()
}

// Clone returns a deep copy of m.
func (m Mapping) Clone() Mapping {
	out := Mapping{
		Routes:  make(map[string][]string, len(m.Routes)),
		Actions: make(map[string][]string, len(m.Actions)),
	}
	for k, v := range m.Routes {
		out.Routes[k] = append([]string(nil), v...)
	}
	for k, v := range m.Actions {
		out.Actions[k] = append([]string(nil), v...)
	}
	return out
}

// Equal reports whether m and o carry the same requirements.
func (m Mapping) Equal(o Mapping) bool {
	eq := func(a, b []string) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}
	return maps.EqualFunc(m.Routes, o.Routes, eq) && maps.EqualFunc(m.Actions, o.Actions, eq)
}

// RouteRequirement returns the permissions required for route. The exact path
// is tried first, then ":param" patterns segment by segment. Unknown routes
// require nothing.
func (m Mapping) RouteRequirement(route string) []string {
	route = normalizePath(route)
	if req, ok := m.Routes[route]; ok {
		return req
	}
	segs := splitPath(route)
	var (
		best       []string
		bestParams = -1
	)
	for pattern, req := range m.Routes {
		n, ok := matchPattern(splitPath(pattern), segs)
		if !ok {
			continue
		}
		if bestParams < 0 || n < bestParams || (n == bestParams && lessStrings(req, best)) {
			best, bestParams = req, n
		}
	}
	return best
}

// lessStrings orders ties between equally specific patterns so lookups stay
// deterministic across map iteration orders.
func lessStrings(a, b []string) bool {
	return strings.Join(a, ",") < strings.Join(b, ",")
}

// ActionRequirement returns the permissions required for action id.
func (m Mapping) ActionRequirement(id string) []string {
	return m.Actions[strings.TrimSpace(id)]
}

// HasRoutePermission reports whether roles/perms may open route under m.
func HasRoutePermission(m Mapping, route string, roles, perms []string) bool {
	return allowed(m.RouteRequirement(route), roles, perms)
}

// HasActionPermission reports whether roles/perms may trigger action id under m.
func HasActionPermission(m Mapping, id string, roles, perms []string) bool {
	return allowed(m.ActionRequirement(id), roles, perms)
}

func allowed(required, roles, perms []string) bool {
	if len(required) == 0 || IsSuperAdmin(roles) {
		return true
	}
	for _, p := range perms {
		p = strings.ToUpper(strings.TrimSpace(p))
		for _, r := range required {
			if p == r {
				return true
			}
		}
	}
	return false
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// matchPattern reports whether segs matches a ":param" pattern and how many
// parameters it used. Patterns without parameters never match here since the
// exact lookup already covered them.
func matchPattern(pattern, segs []string) (int, bool) {
	if len(pattern) != len(segs) {
		return 0, false
	}
	params := 0
	for i, s := range pattern {
		if strings.HasPrefix(s, ":") {
			params++
			continue
		}
		if s != segs[i] {
			return 0, false
		}
	}
	return params, params > 0
}
