package guard

import (
	"net/url"
	"slices"
	"strings"

	"github.com/pgcportal/portal/permission"
	"github.com/pgcportal/portal/session"
)

// Outcome is the result of evaluating one navigation.
type Outcome int

const (
	OutcomeBoot Outcome = iota
	OutcomeRedirect
	OutcomeForbidden
	OutcomeRender
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBoot:
		return "boot"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeRender:
		return "render"
	}
	return "unknown"
}

// Reason explains a forbidden outcome.
type Reason string

const (
	ReasonRole       Reason = "role"
	ReasonPermission Reason = "permission"
)

// LoginPath is where unauthenticated navigations are sent.
const LoginPath = "/login"

// Decision is what the caller should show.
type Decision struct {
	Outcome Outcome
	Route   Route
	// Location is the redirect target for OutcomeRedirect.
	Location string
	// Reason, Required and Current describe OutcomeForbidden: the roles or
	// permissions the route needs and the ones the user has.
	Reason   Reason
	Required []string
	Current  []string
}

// Evaluate runs the navigation state machine for path, which route matched.
func Evaluate(st session.State, route Route, path string, resolver *permission.Resolver) Decision {
	d := Decision{Route: route}

	switch {
	case !st.Initialized:
		d.Outcome = OutcomeBoot
		return d
	case route.Public:
		d.Outcome = OutcomeRender
		return d
	case !st.Authenticated:
		d.Outcome = OutcomeRedirect
		d.Location = LoginLocation(path)
		return d
	}

	superAdmin := permission.IsSuperAdmin(st.Roles)
	if len(route.Roles) > 0 && !superAdmin && !hasAnyRole(st.Roles, route.Roles) {
		d.Outcome = OutcomeForbidden
		d.Reason = ReasonRole
		for _, r := range route.Roles {
			d.Required = append(d.Required, string(r))
		}
		d.Current = slices.Clone(st.Roles)
		return d
	}

	if resolver == nil {
		resolver = permission.NewResolver()
	}
	if !resolver.HasRoute(path, st.Roles, st.Permissions) {
		d.Outcome = OutcomeForbidden
		d.Reason = ReasonPermission
		d.Required = slices.Clone(resolver.Mapping().RouteRequirement(path))
		d.Current = slices.Clone(st.Permissions)
		return d
	}

	d.Outcome = OutcomeRender
	return d
}

func hasAnyRole(have []string, want []permission.Role) bool {
	for _, h := range have {
		if slices.Contains(want, permission.Role(strings.ToUpper(strings.TrimSpace(h)))) {
			return true
		}
	}
	return false
}

// LoginLocation is the login URL that returns to path afterwards.
func LoginLocation(path string) string {
	p := cleanPath(path)
	if p == "/" || p == LoginPath || p == "/logout" {
		return LoginPath
	}
	return LoginPath + "?redirect=" + url.QueryEscape(path)
}

// ReturnPath extracts the remembered path from a login location. Anything
// that is not a local absolute path yields fallback.
func ReturnPath(location, fallback string) string {
	u, err := url.Parse(location)
	if err != nil {
		return fallback
	}
	target := u.Query().Get("redirect")
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return fallback
	}
	return target
}
