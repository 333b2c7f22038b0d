package portal

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pgcportal/portal/api"
	"github.com/pgcportal/portal/cart"
	"gopkg.in/yaml.v3"
)

// Config is the full portal configuration. Start from DefaultConfig and
// override; Build validates it.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Storage    StorageConfig    `yaml:"storage"`
	Cart       CartConfig       `yaml:"cart"`
	Permission PermissionConfig `yaml:"permission"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Prefix  string `yaml:"prefix"`
	// Timeout bounds each request when positive. Zero means no client-side
	// timeout.
	Timeout time.Duration `yaml:"timeout"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Storage backends.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// StorageConfig selects the durable tier that holds the session, carts,
// the application cache and the theme preference.
type StorageConfig struct {
	Backend       string        `yaml:"backend"` // "memory" (default), "sqlite" or "redis"
	SQLitePath    string        `yaml:"sqlite_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

/*
====================================
CART CONFIG
====================================
*/

// Cart replace policies.
const (
	ReplaceWiden = "widen"
	ReplaceClamp = "clamp"
)

type CartConfig struct {
	// ReplacePolicy decides how re-adding a SKU treats a lower stock figure.
	ReplacePolicy string `yaml:"replace_policy"`
}

func (c CartConfig) policy() cart.ReplacePolicy {
	if c.ReplacePolicy == ReplaceClamp {
		return cart.ReplaceClampStock
	}
	return cart.ReplaceWidenStock
}

/*
====================================
PERMISSION CONFIG
====================================
*/

// PermissionConfig optionally replaces the compiled-in guard defaults.
type PermissionConfig struct {
	// DefaultsFile is a YAML guard config used whenever the server's guard
	// config is empty or unavailable.
	DefaultsFile string `yaml:"defaults_file"`
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns a Config pointing at a local backend with in-memory
// storage.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080",
			Prefix:  api.DefaultPrefix,
		},
		Storage: StorageConfig{
			Backend:     StorageMemory,
			SQLitePath:  "portal.db",
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "portal",
		},
		Cart: CartConfig{
			ReplacePolicy: ReplaceWiden,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: API BaseURL must be an absolute http(s) URL", ErrInvalidConfig)
	}
	if c.API.Prefix != "" && !strings.HasPrefix(c.API.Prefix, "/") {
		return fmt.Errorf("%w: API Prefix must start with /", ErrInvalidConfig)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("%w: API Timeout must be >= 0", ErrInvalidConfig)
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite storage requires SQLitePath", ErrInvalidConfig)
		}
	case StorageRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return fmt.Errorf("%w: redis storage requires RedisAddr", ErrInvalidConfig)
		}
		if c.Storage.RedisDB < 0 {
			return fmt.Errorf("%w: Storage RedisDB must be >= 0", ErrInvalidConfig)
		}
		if c.Storage.RedisTTL < 0 {
			return fmt.Errorf("%w: Storage RedisTTL must be >= 0", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	// Cart
	if c.Cart.ReplacePolicy != ReplaceWiden && c.Cart.ReplacePolicy != ReplaceClamp {
		return fmt.Errorf("%w: unsupported cart replace policy %q", ErrInvalidConfig, c.Cart.ReplacePolicy)
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return fmt.Errorf("%w: latency histograms require metrics to be enabled", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig decodes YAML from r over DefaultConfig. Unknown keys are
// rejected. An empty document yields the defaults.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML config file. See LoadConfig.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return LoadConfig(f)
}

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL       = "PORTAL_BASE_URL"
	EnvAPIPrefix     = "PORTAL_API_PREFIX"
	EnvTimeout       = "PORTAL_TIMEOUT"
	EnvStorage       = "PORTAL_STORAGE"
	EnvSQLitePath    = "PORTAL_SQLITE_PATH"
	EnvRedisAddr     = "PORTAL_REDIS_ADDR"
	EnvRedisPassword = "PORTAL_REDIS_PASSWORD"
	EnvRedisDB       = "PORTAL_REDIS_DB"
	EnvRedisPrefix   = "PORTAL_REDIS_PREFIX"
	EnvRedisTTL      = "PORTAL_REDIS_TTL"
	EnvReplacePolicy = "PORTAL_CART_REPLACE_POLICY"
	EnvGuardDefaults = "PORTAL_GUARD_DEFAULTS"
	EnvMetrics       = "PORTAL_METRICS"
)

// ApplyEnv overrides fields from PORTAL_* variables. lookup defaults to
// os.LookupEnv. Unset variables leave the field alone; malformed values are
// errors.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(name)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
		*dst = d
		return nil
	}

	str(EnvBaseURL, &c.API.BaseURL)
	str(EnvAPIPrefix, &c.API.Prefix)
	if err := dur(EnvTimeout, &c.API.Timeout); err != nil {
		return err
	}
	str(EnvStorage, &c.Storage.Backend)
	str(EnvSQLitePath, &c.Storage.SQLitePath)
	str(EnvRedisAddr, &c.Storage.RedisAddr)
	if v, ok := lookup(EnvRedisPassword); ok {
		c.Storage.RedisPassword = v
	}
	if v, ok := lookup(EnvRedisDB); ok {
		db, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvRedisDB, err)
		}
		c.Storage.RedisDB = db
	}
	str(EnvRedisPrefix, &c.Storage.RedisPrefix)
	if err := dur(EnvRedisTTL, &c.Storage.RedisTTL); err != nil {
		return err
	}
	str(EnvReplacePolicy, &c.Cart.ReplacePolicy)
	str(EnvGuardDefaults, &c.Permission.DefaultsFile)
	if v, ok := lookup(EnvMetrics); ok {
		on, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvMetrics, err)
		}
		c.Metrics.Enabled = on
		c.Metrics.EnableLatencyHistograms = on
	}
	return nil
}
