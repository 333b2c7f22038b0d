// Package appcache mirrors just-submitted applications into the
// session-scoped tier so they can be shown before the next list refresh.
// The server list is always authoritative.
package appcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pgcportal/portal/api"
	"github.com/pgcportal/portal/storage"
)

// Limit bounds how many submitted applications are remembered.
const Limit = 20

// Cache is safe for concurrent use.
type Cache struct {
	store  storage.Store
	logger *slog.Logger
	mu     sync.Mutex
}

func New(store storage.Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// List returns the cached applications, newest first. Unreadable or invalid
// payloads read as empty.
func (c *Cache) List(ctx context.Context) []api.Application {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read(ctx)
}

func (c *Cache) read(ctx context.Context) []api.Application {
	payload, ok, err := c.store.Get(ctx, storage.ApplicationsKey)
	if err != nil {
		c.logger.Warn("portal: application cache read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		c.logger.Warn("portal: discarding unparsable application cache", "error", err)
		return nil
	}
	out := make([]api.Application, 0, len(raw))
	for _, msg := range raw {
		var app api.Application
		if err := json.Unmarshal(msg, &app); err != nil || app.ID <= 0 {
			continue
		}
		out = append(out, app)
	}
	return out
}

func (c *Cache) write(ctx context.Context, apps []api.Application) error {
	buf, err := json.Marshal(apps)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, storage.ApplicationsKey, string(buf)); err != nil {
		return fmt.Errorf("writing application cache: %w", err)
	}
	return nil
}

// Remember stores app at the front of the cache, replacing an older copy
// with the same ID.
func (c *Cache) Remember(ctx context.Context, app api.Application) error {
	if app.ID <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	apps := []api.Application{app}
	for _, a := range c.read(ctx) {
		if a.ID != app.ID {
			apps = append(apps, a)
		}
	}
	if len(apps) > Limit {
		apps = apps[:Limit]
	}
	return c.write(ctx, apps)
}

// Merge returns the server list followed by cached applications the server
// does not know yet. Cached entries the server already returned are pruned
// from the cache.
func (c *Cache) Merge(ctx context.Context, server []api.Application) []api.Application {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[int64]struct{}, len(server))
	for _, a := range server {
		seen[a.ID] = struct{}{}
	}

	cached := c.read(ctx)
	pending := make([]api.Application, 0, len(cached))
	for _, a := range cached {
		if _, ok := seen[a.ID]; !ok {
			pending = append(pending, a)
		}
	}
	if len(pending) != len(cached) {
		if err := c.write(ctx, pending); err != nil {
			c.logger.Warn("portal: application cache prune failed", "error", err)
		}
	}

	out := make([]api.Application, 0, len(server)+len(pending))
	out = append(out, server...)
	return append(out, pending...)
}

// Clear forgets every cached application.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Delete(ctx, storage.ApplicationsKey)
}
