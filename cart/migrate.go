package cart

import (
	"context"
	"fmt"

	"github.com/pgcportal/portal/storage"
)

// MigrateLegacy moves the cart stored under key from legacy into durable when
// durable has nothing for key. The payload is validated and re-encoded on the
// way, and the legacy entry is deleted afterwards. It reports whether a
// migration happened and is a no-op on every later call for the same key.
func MigrateLegacy(ctx context.Context, durable, legacy storage.Store, key string) (bool, error) {
	if durable == nil || legacy == nil {
		return false, nil
	}

	if _, ok, err := durable.Get(ctx, key); err != nil {
		return false, fmt.Errorf("checking durable tier: %w", err)
	} else if ok {
		return false, nil
	}

	payload, ok, err := legacy.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("reading legacy tier: %w", err)
	}
	if !ok {
		return false, nil
	}

	items, _ := Decode(payload)
	encoded, err := Encode(items)
	if err != nil {
		return false, err
	}
	if err := durable.Set(ctx, key, encoded); err != nil {
		return false, fmt.Errorf("writing durable tier: %w", err)
	}
	if err := legacy.Delete(ctx, key); err != nil {
		return true, fmt.Errorf("deleting legacy entry: %w", err)
	}
	return true, nil
}
