package fetch

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by Run when a newer call started in the same slot.
var ErrSuperseded = errors.New("superseded by a newer request")

// Latest tracks the most recent call started in a slot. The zero value is
// ready to use.
type Latest struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Ticket identifies one call started in a Latest slot.
type Ticket struct {
	slot *Latest
	gen  uint64
}

// Current reports whether no newer call has started since this one.
func (t Ticket) Current() bool {
	if t.slot == nil {
		return false
	}
	t.slot.mu.Lock()
	defer t.slot.mu.Unlock()
	return t.slot.gen == t.gen
}

// Begin cancels the previous call in the slot and returns a context for the
// new one. The returned cancel func releases the context; it does not affect
// newer calls.
func (l *Latest) Begin(parent context.Context) (context.Context, Ticket, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	l.cancel = cancel
	t := Ticket{slot: l, gen: l.gen}
	l.mu.Unlock()

	return ctx, t, cancel
}

// Cancel aborts the in-flight call, if any, and invalidates its ticket.
func (l *Latest) Cancel() {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.mu.Unlock()
}

// Run starts fn in slot l and returns its result only if no newer call began
// while it ran.
func Run[T any](ctx context.Context, l *Latest, fn func(context.Context) (T, error)) (T, error) {
	ctx, ticket, cancel := l.Begin(ctx)
	defer cancel()

	v, err := fn(ctx)
	if !ticket.Current() {
		var zero T
		return zero, ErrSuperseded
	}
	return v, err
}
