package portal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"

	"github.com/pgcportal/portal/api"
	"github.com/pgcportal/portal/appcache"
	"github.com/pgcportal/portal/cart"
	"github.com/pgcportal/portal/events"
	"github.com/pgcportal/portal/guard"
	"github.com/pgcportal/portal/permission"
	"github.com/pgcportal/portal/session"
	"github.com/pgcportal/portal/storage"
)

// Portal is one signed-in (or anonymous) client. Build it with a Builder.
type Portal struct {
	config Config
	logger *slog.Logger

	durable  storage.Store
	owned    []io.Closer
	metrics  *Metrics
	bus      *events.Bus
	client   *api.Client
	resolver *permission.Resolver
	session  *session.Store
	cart     *cart.Store
	apps     *appcache.Cache
	guard    *guard.Guard

	unsubscribe []func()

	mu       sync.Mutex
	closed   bool
	lastUser string
}

func (p *Portal) Config() Config                      { return p.config }
func (p *Portal) Client() *api.Client                 { return p.client }
func (p *Portal) Bus() *events.Bus                    { return p.bus }
func (p *Portal) Resolver() *permission.Resolver      { return p.resolver }
func (p *Portal) Session() *session.Store             { return p.session }
func (p *Portal) Cart() *cart.Store                   { return p.cart }
func (p *Portal) Applications() *appcache.Cache       { return p.apps }
func (p *Portal) Guard() *guard.Guard                 { return p.guard }
func (p *Portal) Metrics() *Metrics                   { return p.metrics }
func (p *Portal) MetricsSnapshot() MetricsSnapshot    { return p.metrics.Snapshot() }
func (p *Portal) Navigate(path string) guard.Decision { return p.guard.Navigate(path) }

// Gauges is a point-in-time view of client state for metric exporters.
type Gauges struct {
	Authenticated bool
	CartLines     int
	CartQuantity  int
}

// Gauges reads the live session and cart state.
func (p *Portal) Gauges() Gauges {
	return Gauges{
		Authenticated: p.session.IsAuthenticated(),
		CartLines:     p.cart.Len(),
		CartQuantity:  p.cart.TotalQuantity(),
	}
}

// Token returns the current access token, or "" when signed out.
func (p *Portal) Token() string {
	return p.session.Token()
}

// Login signs in and, on success, switches the cart to the new user.
func (p *Portal) Login(ctx context.Context, employeeNo, password string) error {
	if p.isClosed() {
		return ErrClosed
	}
	return p.session.Login(ctx, employeeNo, password)
}

// Logout clears the local session immediately; the server call runs in the
// background.
func (p *Portal) Logout(ctx context.Context) {
	p.session.Logout(ctx)
}

// Can reports whether the current user may perform the action id.
func (p *Portal) Can(actionID string) bool {
	st := p.session.State()
	if !st.Authenticated {
		return false
	}
	return p.resolver.HasAction(actionID, st.Roles, st.Permissions)
}

// sessionChanged keeps the cart keyed by the signed-in user. Leaving an
// account also forgets that user's cached applications.
func (p *Portal) sessionChanged(st session.State) {
	owner := ""
	if st.Authenticated {
		owner = strconv.FormatInt(st.UserID, 10)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	prev := p.lastUser
	p.lastUser = owner
	p.mu.Unlock()

	ctx := context.Background()
	if owner != p.cart.UserID() {
		p.cart.SwitchUser(ctx, owner)
	}
	if prev != "" && prev != owner {
		if err := p.apps.Clear(ctx); err != nil {
			p.logger.Warn("portal: application cache clear failed", "error", err)
		}
	}
}

// CheckoutRequest carries the delivery details of a cart checkout.
type CheckoutRequest struct {
	DeliveryType   string
	Reason         string
	ExpressAddress *api.ExpressAddress
}

// Checkout submits the cart as a new application. On success the cart is
// cleared and the application is remembered until the server lists it.
func (p *Portal) Checkout(ctx context.Context, req CheckoutRequest) (api.Application, error) {
	if p.isClosed() {
		return api.Application{}, ErrClosed
	}

	entries := p.cart.Items()
	if len(entries) == 0 {
		return api.Application{}, ErrCartEmpty
	}
	items := make([]api.ApplicationItemInput, 0, len(entries))
	for _, e := range entries {
		items = append(items, api.ApplicationItemInput{SKUID: e.SKU.ID, Quantity: e.Quantity})
	}

	app, err := p.client.CreateApplication(ctx, p.session.Token(), api.CreateApplicationRequest{
		DeliveryType:   req.DeliveryType,
		Reason:         req.Reason,
		Items:          items,
		ExpressAddress: req.ExpressAddress,
	})
	if err != nil {
		p.metrics.Inc(MetricCheckoutFailure)
		return api.Application{}, err
	}
	p.metrics.Inc(MetricCheckoutSuccess)

	if err := p.cart.Clear(ctx); err != nil {
		p.logger.Warn("portal: cart clear after checkout failed", "application", app.ID, "error", err)
	}
	if err := p.apps.Remember(ctx, app); err != nil {
		p.logger.Warn("portal: application cache write failed", "application", app.ID, "error", err)
	}
	return app, nil
}

// MyApplications lists the user's applications. The first page also carries
// recently submitted applications the server does not return yet.
func (p *Portal) MyApplications(ctx context.Context, q api.PageQuery) (api.Page[api.Application], error) {
	page, err := p.client.ListMyApplications(ctx, p.session.Token(), q)
	if err != nil {
		return page, err
	}
	if q.Page <= 1 {
		page.Items = p.apps.Merge(ctx, page.Items)
	}
	return page, nil
}

// Theme modes.
type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

func ParseThemeMode(s string) (ThemeMode, error) {
	switch m := ThemeMode(s); m {
	case ThemeLight, ThemeDark, ThemeSystem:
		return m, nil
	}
	return "", ErrInvalidThemeMode
}

// ThemeMode returns the persisted preference. Missing, unreadable or
// unknown values read as ThemeSystem.
func (p *Portal) ThemeMode(ctx context.Context) ThemeMode {
	v, ok, err := p.durable.Get(ctx, storage.ThemeModeKey)
	if err != nil {
		p.logger.Warn("portal: theme mode read failed", "error", err)
		return ThemeSystem
	}
	if !ok {
		return ThemeSystem
	}
	m, err := ParseThemeMode(v)
	if err != nil {
		return ThemeSystem
	}
	return m
}

func (p *Portal) SetThemeMode(ctx context.Context, mode ThemeMode) error {
	if p.isClosed() {
		return ErrClosed
	}
	if _, err := ParseThemeMode(string(mode)); err != nil {
		return err
	}
	return p.durable.Set(ctx, storage.ThemeModeKey, string(mode))
}

func (p *Portal) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close stops background work and closes storage the Portal opened itself.
// It is safe to call more than once.
func (p *Portal) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	unsub := p.unsubscribe
	p.unsubscribe = nil
	p.mu.Unlock()

	for _, fn := range unsub {
		fn()
	}
	p.session.Close()
	return p.closeOwned()
}

func (p *Portal) closeOwned() error {
	var errs []error
	for i := len(p.owned) - 1; i >= 0; i-- {
		if err := p.owned[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.owned = nil
	return errors.Join(errs...)
}
