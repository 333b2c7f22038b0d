package portal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "base url relative invalid",
			mutate: func(c *Config) {
				c.API.BaseURL = "/api"
			},
			wantValid: false,
		},
		{
			name: "base url ftp invalid",
			mutate: func(c *Config) {
				c.API.BaseURL = "ftp://portal.local"
			},
			wantValid: false,
		},
		{
			name: "empty prefix valid",
			mutate: func(c *Config) {
				c.API.Prefix = ""
			},
			wantValid: true,
		},
		{
			name: "prefix without slash invalid",
			mutate: func(c *Config) {
				c.API.Prefix = "api/v1"
			},
			wantValid: false,
		},
		{
			name: "negative timeout invalid",
			mutate: func(c *Config) {
				c.API.Timeout = -time.Second
			},
			wantValid: false,
		},
		{
			name: "sqlite valid",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageSQLite
			},
			wantValid: true,
		},
		{
			name: "sqlite without path invalid",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageSQLite
				c.Storage.SQLitePath = " "
			},
			wantValid: false,
		},
		{
			name: "redis without addr invalid",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageRedis
				c.Storage.RedisAddr = ""
			},
			wantValid: false,
		},
		{
			name: "redis negative ttl invalid",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageRedis
				c.Storage.RedisTTL = -time.Minute
			},
			wantValid: false,
		},
		{
			name: "unknown backend invalid",
			mutate: func(c *Config) {
				c.Storage.Backend = "etcd"
			},
			wantValid: false,
		},
		{
			name: "clamp policy valid",
			mutate: func(c *Config) {
				c.Cart.ReplacePolicy = ReplaceClamp
			},
			wantValid: true,
		},
		{
			name: "unknown policy invalid",
			mutate: func(c *Config) {
				c.Cart.ReplacePolicy = "max"
			},
			wantValid: false,
		},
		{
			name: "latency without metrics invalid",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	doc := `
api:
  base_url: https://portal.example.com
  timeout: 15s
storage:
  backend: redis
  redis_addr: 10.0.0.5:6379
  redis_ttl: 24h
cart:
  replace_policy: clamp
`
	cfg, err := LoadConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://portal.example.com" || cfg.API.Timeout != 15*time.Second {
		t.Fatalf("unexpected api config %+v", cfg.API)
	}
	if cfg.API.Prefix != "/api/v1" {
		t.Fatalf("expected default prefix kept, got %q", cfg.API.Prefix)
	}
	if cfg.Storage.Backend != StorageRedis || cfg.Storage.RedisTTL != 24*time.Hour {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Cart.ReplacePolicy != ReplaceClamp {
		t.Fatalf("unexpected cart policy %q", cfg.Cart.ReplacePolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config invalid: %v", err)
	}
}

func TestLoadConfigEmptyAndUnknown(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}

	if _, err := LoadConfig(strings.NewReader("api:\n  base: x\n")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for unknown key, got %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.yaml")
	if err := os.WriteFile(path, []byte("metrics:\n  enabled: false\n  enable_latency_histograms: false\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("expected metrics disabled")
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvBaseURL:       " https://assets.corp ",
		EnvTimeout:       "3s",
		EnvStorage:       "sqlite",
		EnvSQLitePath:    "/var/lib/portal.db",
		EnvRedisDB:       "2",
		EnvReplacePolicy: "clamp",
		EnvMetrics:       "false",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.API.BaseURL != "https://assets.corp" || cfg.API.Timeout != 3*time.Second {
		t.Fatalf("unexpected api config %+v", cfg.API)
	}
	if cfg.Storage.Backend != StorageSQLite || cfg.Storage.SQLitePath != "/var/lib/portal.db" || cfg.Storage.RedisDB != 2 {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Cart.ReplacePolicy != ReplaceClamp || cfg.Metrics.Enabled || cfg.Metrics.EnableLatencyHistograms {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.API.Prefix != "/api/v1" {
		t.Fatal("unset variables must not change fields")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("env config invalid: %v", err)
	}
}

func TestApplyEnvMalformed(t *testing.T) {
	for _, name := range []string{EnvTimeout, EnvRedisDB, EnvRedisTTL, EnvMetrics} {
		cfg := DefaultConfig()
		err := cfg.ApplyEnv(func(k string) (string, bool) {
			if k == name {
				return "not-a-value", true
			}
			return "", false
		})
		if !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}
