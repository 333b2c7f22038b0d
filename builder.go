package portal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/pgcportal/portal/api"
	"github.com/pgcportal/portal/appcache"
	"github.com/pgcportal/portal/cart"
	"github.com/pgcportal/portal/events"
	"github.com/pgcportal/portal/guard"
	"github.com/pgcportal/portal/permission"
	"github.com/pgcportal/portal/session"
	"github.com/pgcportal/portal/storage"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Portal. A Builder is single use and not safe for
// concurrent configuration.
type Builder struct {
	config Config

	httpClient *http.Client
	redis      redis.UniversalClient
	durable    storage.Store
	legacy     storage.Store

	logger        *slog.Logger
	guardDefaults *permission.GuardConfig
	routes        []guard.Route
	sinks         []events.Sink
	now           func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	b.httpClient = c
	return b
}

// WithRedis supplies the client used when Storage.Backend is "redis". The
// Portal does not close a supplied client.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStorage replaces the configured backend with s. The Portal does not
// close a supplied store.
func (b *Builder) WithStorage(s storage.Store) *Builder {
	b.durable = s
	return b
}

// WithLegacyStorage sets the session-scoped tier. Older clients kept carts
// there; they are moved into durable storage the first time their owner
// loads. The submitted-application cache also lives in this tier, or in
// process memory when none is set.
func (b *Builder) WithLegacyStorage(s storage.Store) *Builder {
	b.legacy = s
	return b
}

func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithGuardDefaults replaces the compiled-in guard mapping. It takes
// precedence over Permission.DefaultsFile.
func (b *Builder) WithGuardDefaults(cfg permission.GuardConfig) *Builder {
	b.guardDefaults = &cfg
	return b
}

func (b *Builder) WithRoutes(routes []guard.Route) *Builder {
	b.routes = routes
	return b
}

// WithEventSink adds a sink that sees every broadcast event.
func (b *Builder) WithEventSink(s events.Sink) *Builder {
	b.sinks = append(b.sinks, s)
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock overrides time.Now for session expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration, opens storage, rehydrates the session
// and loads the owner's cart.
func (b *Builder) Build(ctx context.Context) (_ *Portal, err error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Portal{
		config: cfg,
		logger: logger,
	}
	defer func() {
		if err != nil {
			_ = p.closeOwned()
		}
	}()

	// -------- STORAGE --------
	durable, err := b.openStorage(p, cfg.Storage)
	if err != nil {
		return nil, err
	}
	p.durable = durable

	// -------- PERMISSIONS --------
	resolver, err := b.newResolver(cfg.Permission)
	if err != nil {
		return nil, err
	}
	p.resolver = resolver

	// -------- METRICS / EVENTS --------
	p.metrics = NewMetrics(cfg.Metrics)
	p.bus = events.NewBus()
	for _, s := range b.sinks {
		p.bus.AddSink(s)
	}

	// -------- API CLIENT --------
	client, err := api.NewClient(api.Config{
		BaseURL:    cfg.API.BaseURL,
		Prefix:     cfg.API.Prefix,
		HTTPClient: b.httpClient,
		Publisher:  p.bus,
		Observer:   p.metrics,
		Timeout:    cfg.API.Timeout,
	})
	if err != nil {
		return nil, err
	}
	p.client = client

	// -------- SESSION --------
	sess, err := session.New(session.Options{
		Auth:     client,
		Durable:  durable,
		Resolver: resolver,
		Logger:   logger,
		Observer: p.metrics,
		Now:      b.now,
	})
	if err != nil {
		return nil, err
	}
	p.session = sess

	// -------- CART / APPLICATION CACHE --------
	c, err := cart.Open(ctx, cart.Options{
		Durable:       durable,
		Legacy:        b.legacy,
		ReplacePolicy: cfg.Cart.policy(),
		Logger:        logger,
		Observer:      p.metrics,
	})
	if err != nil {
		return nil, err
	}
	p.cart = c
	// Submitted applications live in the session-scoped tier only.
	ephemeral := b.legacy
	if ephemeral == nil {
		ephemeral = storage.NewMemory()
	}
	p.apps = appcache.New(ephemeral, logger)

	// -------- GUARD --------
	p.guard = guard.New(guard.Options{
		Routes:   b.routes,
		Resolver: resolver,
		Session:  sess,
		Observer: p.metrics,
	})
	p.unsubscribe = append(p.unsubscribe,
		p.guard.Listen(p.bus),
		sess.OnChange(p.sessionChanged),
	)

	sess.Init(ctx)

	b.built = true
	return p, nil
}

func (b *Builder) openStorage(p *Portal, cfg StorageConfig) (storage.Store, error) {
	if b.durable != nil {
		return b.durable, nil
	}

	switch cfg.Backend {
	case StorageSQLite:
		db, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		p.owned = append(p.owned, db)
		return db, nil
	case StorageRedis:
		client := b.redis
		if client == nil {
			rc := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			p.owned = append(p.owned, rc)
			client = rc
		}
		return storage.NewRedis(client, cfg.RedisPrefix, cfg.RedisTTL), nil
	default:
		return storage.NewMemory(), nil
	}
}

func (b *Builder) newResolver(cfg PermissionConfig) (*permission.Resolver, error) {
	defaults := b.guardDefaults
	if defaults == nil && cfg.DefaultsFile != "" {
		loaded, err := loadGuardDefaults(cfg.DefaultsFile)
		if err != nil {
			return nil, err
		}
		defaults = &loaded
	}
	if defaults == nil || defaults.Empty() {
		return permission.NewResolver(), nil
	}
	return permission.NewResolverWithDefaults(permission.Apply(*defaults)), nil
}

func loadGuardDefaults(path string) (permission.GuardConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return permission.GuardConfig{}, fmt.Errorf("%w: guard defaults: %v", ErrInvalidConfig, err)
	}
	defer f.Close()
	return permission.LoadGuardConfigYAML(f)
}
