package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuthUnauthorized is published whenever a protected API call is rejected
// with HTTP 401.
const AuthUnauthorized = "pgc-auth-unauthorized"

// Event is a single broadcast notification.
type Event struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Timestamp time.Time         `json:"timestamp"`
	Path      string            `json:"path,omitempty"`
	Status    int               `json:"status,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Listener reacts to a published event.
type Listener func(ctx context.Context, event Event)

// Publisher is the narrow interface producers depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type subscription struct {
	id uint64
	fn Listener
}

// Bus fans events out to named listeners and catch-all sinks.
// A Bus is safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
	sinks  []Sink
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for events named name. The returned function removes
// the subscription and is safe to call more than once.
func (b *Bus) Subscribe(name string, fn Listener) func() {
	if b == nil || fn == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			current := b.subs[name]
			for i, s := range current {
				if s.id == id {
					b.subs[name] = append(current[:i:i], current[i+1:]...)
					break
				}
			}
			if len(b.subs[name]) == 0 {
				delete(b.subs, name)
			}
		})
	}
}

// AddSink registers a sink that receives every published event.
func (b *Bus) AddSink(s Sink) {
	if b == nil || s == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, s)
	b.mu.Unlock()
}

// Publish stamps the event with an ID and timestamp when missing and delivers
// it to every matching listener, then to every sink.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if b == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.subs[event.Name]))
	for _, s := range b.subs[event.Name] {
		listeners = append(listeners, s.fn)
	}
	sinks := append([]Sink(nil), b.sinks...)
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, event)
	}
	for _, s := range sinks {
		s.Emit(ctx, event)
	}
}

// ListenerCount reports how many listeners are registered for name.
func (b *Bus) ListenerCount(name string) int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}
