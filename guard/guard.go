package guard

import (
	"context"
	"sync"

	"github.com/pgcportal/portal/events"
	"github.com/pgcportal/portal/permission"
	"github.com/pgcportal/portal/session"
)

// Session is the slice of the session store the guard needs.
type Session interface {
	State() session.State
	Logout(ctx context.Context)
}

// Observer receives one callback per navigation.
type Observer interface {
	ObserveNavigation(outcome Outcome)
}

// Options configures New.
type Options struct {
	Routes   []Route
	Resolver *permission.Resolver
	Session  Session
	Observer Observer
	// Start is the initial location. Defaults to "/".
	Start string
}

// Guard tracks the current location of one client and evaluates
// navigations against the route table.
type Guard struct {
	table    *Table
	resolver *permission.Resolver
	session  Session
	observer Observer

	mu       sync.RWMutex
	location string
}

func New(opts Options) *Guard {
	routes := opts.Routes
	if routes == nil {
		routes = DefaultRoutes()
	}
	g := &Guard{
		table:    NewTable(routes),
		resolver: opts.Resolver,
		session:  opts.Session,
		observer: opts.Observer,
		location: opts.Start,
	}
	if g.resolver == nil {
		g.resolver = permission.NewResolver()
	}
	if g.location == "" {
		g.location = "/"
	}
	return g
}

// Table returns the route table.
func (g *Guard) Table() *Table {
	return g.table
}

// Evaluate decides path without moving the current location. Unknown paths
// are treated as authenticated pages with no role requirement.
func (g *Guard) Evaluate(path string) Decision {
	route, ok := g.table.Match(path)
	if !ok {
		route = Route{Path: cleanPath(path)}
	}
	var st session.State
	if g.session != nil {
		st = g.session.State()
	}
	return Evaluate(st, route, path, g.resolver)
}

// Navigate evaluates path and moves the current location: to the login
// location on redirect, to path otherwise. Boot leaves it unchanged.
func (g *Guard) Navigate(path string) Decision {
	d := g.Evaluate(path)

	g.mu.Lock()
	switch d.Outcome {
	case OutcomeRedirect:
		g.location = d.Location
	case OutcomeForbidden, OutcomeRender:
		g.location = path
	}
	g.mu.Unlock()

	if g.observer != nil {
		g.observer.ObserveNavigation(d.Outcome)
	}
	return d
}

// Location returns the current location including any query.
func (g *Guard) Location() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.location
}

// HandleUnauthorized forces a logout and sends the client to login,
// remembering where it was. It does nothing while on /login or /logout.
func (g *Guard) HandleUnauthorized(ctx context.Context, _ events.Event) {
	g.mu.Lock()
	current := g.location
	switch cleanPath(current) {
	case LoginPath, "/logout":
		g.mu.Unlock()
		return
	}
	g.location = LoginLocation(current)
	g.mu.Unlock()

	if g.session != nil {
		g.session.Logout(ctx)
	}
	if g.observer != nil {
		g.observer.ObserveNavigation(OutcomeRedirect)
	}
}

// Listen subscribes HandleUnauthorized to the unauthorized broadcast.
func (g *Guard) Listen(bus *events.Bus) (unsubscribe func()) {
	return bus.Subscribe(events.AuthUnauthorized, g.HandleUnauthorized)
}

// ReturnPath is where to go after a successful login: the remembered
// redirect, else fallback.
func (g *Guard) ReturnPath(fallback string) string {
	return ReturnPath(g.Location(), fallback)
}
