package guard

import (
	"context"
	"sync"
	"testing"

	"github.com/pgcportal/portal/events"
	"github.com/pgcportal/portal/permission"
	"github.com/pgcportal/portal/session"
)

type stubSession struct {
	mu      sync.Mutex
	state   session.State
	logouts int
}

func (s *stubSession) State() session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stubSession) Logout(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logouts++
	s.state = session.State{Initialized: true}
}

func authed(roles, perms []string) session.State {
	return session.State{Initialized: true, Authenticated: true, UserID: 1, Roles: roles, Permissions: perms}
}

func TestEvaluateStateMachine(t *testing.T) {
	table := NewTable(DefaultRoutes())
	resolver := permission.NewResolver()
	route := func(p string) Route {
		r, ok := table.Match(p)
		if !ok {
			t.Fatalf("no route for %s", p)
		}
		return r
	}

	cases := []struct {
		name    string
		state   session.State
		path    string
		outcome Outcome
		reason  Reason
	}{
		{"boot", session.State{}, "/catalog", OutcomeBoot, ""},
		{"public while anonymous", session.State{Initialized: true}, "/login", OutcomeRender, ""},
		{"anonymous redirected", session.State{Initialized: true}, "/catalog", OutcomeRedirect, ""},
		{"user renders catalog", authed([]string{"USER"}, nil), "/catalog", OutcomeRender, ""},
		{"user lacks admin role", authed([]string{"USER"}, nil), "/outbound", OutcomeForbidden, ReasonRole},
		{"admin lacks permission", authed([]string{"ADMIN"}, nil), "/outbound", OutcomeForbidden, ReasonPermission},
		{"admin with permission", authed([]string{"ADMIN"}, []string{"OUTBOUND:OPERATE"}), "/outbound", OutcomeRender, ""},
		{"super admin bypass", authed([]string{"SUPER_ADMIN"}, nil), "/admin/rbac", OutcomeRender, ""},
		{"param route", authed([]string{"USER"}, nil), "/applications/42", OutcomeRender, ""},
		{"crud resource", authed([]string{"ADMIN"}, []string{"RBAC:MANAGE"}), "/admin/crud/departments", OutcomeForbidden, ReasonRole},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Evaluate(tc.state, route(tc.path), tc.path, resolver)
			if d.Outcome != tc.outcome {
				t.Fatalf("expected %s, got %s", tc.outcome, d.Outcome)
			}
			if d.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, d.Reason)
			}
		})
	}
}

func TestForbiddenShowsRequiredAndCurrentRoles(t *testing.T) {
	sess := &stubSession{state: authed([]string{"USER"}, []string{"SKU:VIEW"})}
	g := New(Options{Session: sess})

	d := g.Navigate("/admin/rbac")
	if d.Outcome != OutcomeForbidden || d.Reason != ReasonRole {
		t.Fatalf("expected role forbidden, got %+v", d)
	}
	if len(d.Required) != 1 || d.Required[0] != "SUPER_ADMIN" {
		t.Fatalf("unexpected required roles %v", d.Required)
	}
	if len(d.Current) != 1 || d.Current[0] != "USER" {
		t.Fatalf("unexpected current roles %v", d.Current)
	}
}

func TestForbiddenShowsRequiredPermissions(t *testing.T) {
	sess := &stubSession{state: authed([]string{"LEADER"}, []string{"REPORT:VIEW"})}
	g := New(Options{Session: sess})

	d := g.Navigate("/approvals")
	if d.Outcome != OutcomeForbidden || d.Reason != ReasonPermission {
		t.Fatalf("expected permission forbidden, got %+v", d)
	}
	if len(d.Required) != 1 || d.Required[0] != "APPLICATION:APPROVE" || d.Current[0] != "REPORT:VIEW" {
		t.Fatalf("unexpected required/current %v %v", d.Required, d.Current)
	}
}

func TestNavigateTracksLocation(t *testing.T) {
	sess := &stubSession{state: session.State{Initialized: true}}
	g := New(Options{Session: sess})

	d := g.Navigate("/assets")
	if d.Outcome != OutcomeRedirect || d.Location != "/login?redirect=%2Fassets" {
		t.Fatalf("unexpected decision %+v", d)
	}
	if g.Location() != d.Location {
		t.Fatalf("expected location %s, got %s", d.Location, g.Location())
	}
	if got := g.ReturnPath("/catalog"); got != "/assets" {
		t.Fatalf("expected return path /assets, got %s", got)
	}

	boot := New(Options{Session: &stubSession{}, Start: "/cart"})
	if d := boot.Navigate("/assets"); d.Outcome != OutcomeBoot || boot.Location() != "/cart" {
		t.Fatalf("boot must not move the location, got %+v at %s", d, boot.Location())
	}
}

func TestUnauthorizedListener(t *testing.T) {
	bus := events.NewBus()
	sess := &stubSession{state: authed([]string{"USER"}, nil)}
	g := New(Options{Session: sess})
	unsubscribe := g.Listen(bus)
	defer unsubscribe()

	g.Navigate("/assets")
	bus.Publish(context.Background(), events.Event{Name: events.AuthUnauthorized, Path: "/me/assets", Status: 401})

	if sess.logouts != 1 {
		t.Fatalf("expected forced logout, got %d", sess.logouts)
	}
	if g.Location() != "/login?redirect=%2Fassets" {
		t.Fatalf("unexpected location %s", g.Location())
	}

	bus.Publish(context.Background(), events.Event{Name: events.AuthUnauthorized})
	if sess.logouts != 1 {
		t.Fatal("listener must not fire while on the login page")
	}
}

func TestUnauthorizedIgnoredOnLogout(t *testing.T) {
	sess := &stubSession{state: authed([]string{"USER"}, nil)}
	g := New(Options{Session: sess, Start: "/logout"})
	g.HandleUnauthorized(context.Background(), events.Event{Name: events.AuthUnauthorized})
	if sess.logouts != 0 || g.Location() != "/logout" {
		t.Fatalf("expected no-op on /logout, logouts=%d location=%s", sess.logouts, g.Location())
	}
}

func TestReturnPathRejectsForeignTargets(t *testing.T) {
	cases := map[string]string{
		"/login?redirect=%2Fcart":             "/cart",
		"/login?redirect=https://evil.test":   "/catalog",
		"/login?redirect=%2F%2Fevil.test":     "/catalog",
		"/login":                              "/catalog",
		"/login?redirect=%2Fapplications%3Fx": "/applications?x",
	}
	for loc, want := range cases {
		if got := ReturnPath(loc, "/catalog"); got != want {
			t.Fatalf("%s: expected %s, got %s", loc, want, got)
		}
	}
}

func TestTableMatch(t *testing.T) {
	table := NewTable(DefaultRoutes())
	for path, want := range map[string]string{
		"/catalog/":             "/catalog",
		"/applications/7?tab=1": "/applications/:id",
		"/admin/crud/users":     "/admin/crud/:resource",
	} {
		r, ok := table.Match(path)
		if !ok || r.Path != want {
			t.Fatalf("%s: expected %s, got %+v ok=%v", path, want, r, ok)
		}
	}
	if _, ok := table.Match("/applications/7/extra"); ok {
		t.Fatal("expected no match for extra segments")
	}
}
