package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pgcportal/portal/api"
	"github.com/pgcportal/portal/storage"
	"github.com/shopspring/decimal"
)

var (
	// ErrPersist wraps a failed durable write. The in-memory mutation stands.
	ErrPersist = errors.New("cart persist failed")
	// ErrNoStorage is returned by Open without a durable tier.
	ErrNoStorage = errors.New("cart requires durable storage")
)

// ReplacePolicy decides the stock ceiling Replace applies to each entry.
type ReplacePolicy int

const (
	// ReplaceWidenStock raises the ceiling to max(requested, declared) so a
	// requested quantity is never truncated.
	ReplaceWidenStock ReplacePolicy = iota
	// ReplaceClampStock clamps requested quantities to the declared stock.
	ReplaceClampStock
)

func (p ReplacePolicy) String() string {
	switch p {
	case ReplaceWidenStock:
		return "widen"
	case ReplaceClampStock:
		return "clamp"
	}
	return fmt.Sprintf("ReplacePolicy(%d)", int(p))
}

// Observer receives cart activity for metrics.
type Observer interface {
	CartMutated(op string)
	CartMigrated(key string)
}

// Options configures Open.
type Options struct {
	Durable storage.Store
	// Legacy is the session-scoped tier older clients wrote to. Optional.
	Legacy        storage.Store
	UserID        string
	ReplacePolicy ReplacePolicy
	Logger        *slog.Logger
	Observer      Observer
}

// Store is the cart for one user at a time. Methods are safe for concurrent
// use.
type Store struct {
	durable  storage.Store
	legacy   storage.Store
	policy   ReplacePolicy
	logger   *slog.Logger
	observer Observer

	mu     sync.Mutex
	userID string
	items  map[int64]Entry
}

// Open migrates any legacy payload for the user's key and loads the cart.
// Unreadable storage degrades to an empty cart.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Durable == nil {
		return nil, ErrNoStorage
	}
	s := &Store{
		durable:  opts.Durable,
		legacy:   opts.Legacy,
		policy:   opts.ReplacePolicy,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.mu.Lock()
	s.load(ctx, opts.UserID)
	s.mu.Unlock()
	return s, nil
}

// load must be called with mu held.
func (s *Store) load(ctx context.Context, userID string) {
	s.userID = userID
	s.items = make(map[int64]Entry)
	key := storage.CartKey(userID)

	migrated, err := MigrateLegacy(ctx, s.durable, s.legacy, key)
	if err != nil {
		s.logger.Warn("portal: cart legacy migration failed", "key", key, "error", err)
	} else if migrated && s.observer != nil {
		s.observer.CartMigrated(key)
	}

	payload, ok, err := s.durable.Get(ctx, key)
	if err != nil {
		s.logger.Warn("portal: cart load failed", "key", key, "error", err)
		return
	}
	if !ok {
		return
	}
	items, dropped := Decode(payload)
	if dropped > 0 {
		s.logger.Warn("portal: dropped invalid cart entries", "key", key, "dropped", dropped)
	}
	s.items = items
}

// persist must be called with mu held.
func (s *Store) persist(ctx context.Context, op string) error {
	if s.observer != nil {
		s.observer.CartMutated(op)
	}
	payload, err := Encode(s.items)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.durable.Set(ctx, storage.CartKey(s.userID), payload); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Add increments sku's quantity by one, clamped to its available stock. The
// stored snapshot is refreshed from sku.
func (s *Store) Add(ctx context.Context, sku api.SKU) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := min(s.items[sku.ID].Quantity+1, sku.AvailableStock)
	if next <= 0 {
		delete(s.items, sku.ID)
	} else {
		s.items[sku.ID] = Entry{SKU: sku, Quantity: next}
	}
	return s.persist(ctx, "add")
}

// SetQuantity sets an explicit quantity, floored at zero and clamped to the
// entry's available stock. A result of zero removes the entry. Unknown IDs
// are ignored.
func (s *Store) SetQuantity(ctx context.Context, id int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[id]
	if !ok {
		return nil
	}
	q := min(max(quantity, 0), e.SKU.AvailableStock)
	if q <= 0 {
		delete(s.items, id)
	} else {
		e.Quantity = q
		s.items[id] = e
	}
	return s.persist(ctx, "set_quantity")
}

// Remove drops the entry for id.
func (s *Store) Remove(ctx context.Context, id int64) error {
	return s.SetQuantity(ctx, id, 0)
}

// Replace rebuilds the cart from entries. Later entries for the same SKU win.
func (s *Store) Replace(ctx context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make(map[int64]Entry, len(entries))
	for _, e := range entries {
		if e.SKU.ID <= 0 {
			continue
		}
		requested := max(e.Quantity, 0)
		ceiling := e.SKU.AvailableStock
		if s.policy == ReplaceWidenStock {
			ceiling = max(requested, ceiling)
		}
		q := min(requested, ceiling)
		if q <= 0 {
			delete(items, e.SKU.ID)
			continue
		}
		sku := e.SKU
		sku.AvailableStock = max(ceiling, 0)
		items[sku.ID] = Entry{SKU: sku, Quantity: q}
	}
	s.items = items
	return s.persist(ctx, "replace")
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[int64]Entry)
	return s.persist(ctx, "clear")
}

// SwitchUser re-reads the cart under userID's key. It always reloads, even
// for the current user.
func (s *Store) SwitchUser(ctx context.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx, userID)
}

func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Key returns the storage key of the current cart.
func (s *Store) Key() string {
	return storage.CartKey(s.UserID())
}

// Items returns the entries ordered by SKU ID.
func (s *Store) Items() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int {
		switch {
		case a.SKU.ID < b.SKU.ID:
			return -1
		case a.SKU.ID > b.SKU.ID:
			return 1
		}
		return 0
	})
	return out
}

func (s *Store) Get(id int64) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	return e, ok
}

// Len returns the number of distinct SKUs.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.items {
		n += e.Quantity
	}
	return n
}

// Total is the sum of reference price times quantity.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, e := range s.items {
		total = total.Add(e.SKU.ReferencePrice.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	return total
}
