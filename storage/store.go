package storage

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every backend failure.
var ErrUnavailable = errors.New("storage unavailable")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage closed")

// Store is a string key/value tier. Get reports ok=false for a missing key
// without an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Persisted client-state keys.
const (
	SessionKey      = "pgc-auth-session-v1"
	CartKeyPrefix   = "pgc-m02-cart-v1:"
	ApplicationsKey = "pgc-m02-applications-v1"
	ThemeModeKey    = "pgc-theme-mode"

	AnonymousOwner = "anonymous"
)

// CartKey returns the per-user cart key. An empty user ID maps to the
// anonymous owner.
func CartKey(userID string) string {
	if userID == "" {
		userID = AnonymousOwner
	}
	return CartKeyPrefix + userID
}
