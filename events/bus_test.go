package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestPublishDeliversOnlyToMatchingListeners(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(AuthUnauthorized, func(_ context.Context, e Event) {
		got = append(got, "a:"+e.Path)
	})
	bus.Subscribe("other", func(_ context.Context, e Event) {
		got = append(got, "b:"+e.Path)
	})

	bus.Publish(context.Background(), Event{Name: AuthUnauthorized, Path: "/me/assets", Status: 401})

	if len(got) != 1 || got[0] != "a:/me/assets" {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestPublishStampsIDAndTimestamp(t *testing.T) {
	bus := NewBus()
	sink := NewChannelSink(1)
	bus.AddSink(sink)

	bus.Publish(context.Background(), Event{Name: AuthUnauthorized})

	e := <-sink.Events()
	if e.ID == "" {
		t.Fatal("expected generated event id")
	}
	if e.Timestamp.IsZero() {
		t.Fatal("expected timestamp")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus()
	calls := 0
	off := bus.Subscribe(AuthUnauthorized, func(context.Context, Event) { calls++ })
	keep := bus.Subscribe(AuthUnauthorized, func(context.Context, Event) { calls += 10 })
	defer keep()

	off()
	off()

	if n := bus.ListenerCount(AuthUnauthorized); n != 1 {
		t.Fatalf("expected 1 listener, got %d", n)
	}
	bus.Publish(context.Background(), Event{Name: AuthUnauthorized})
	if calls != 10 {
		t.Fatalf("expected only remaining listener to run, calls=%d", calls)
	}
}

func TestListenerMayUnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	var off func()
	calls := 0
	off = bus.Subscribe(AuthUnauthorized, func(context.Context, Event) {
		calls++
		off()
	})

	bus.Publish(context.Background(), Event{Name: AuthUnauthorized})
	bus.Publish(context.Background(), Event{Name: AuthUnauthorized})

	if calls != 1 {
		t.Fatalf("expected single delivery, got %d", calls)
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus()
	bus.AddSink(NewJSONWriterSink(&buf))

	bus.Publish(context.Background(), Event{Name: AuthUnauthorized, Path: "/skus"})
	bus.Publish(context.Background(), Event{Name: AuthUnauthorized, Path: "/categories/tree"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[1]), &e); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if e.Path != "/categories/tree" || e.Name != AuthUnauthorized {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	bus.Publish(context.Background(), Event{Name: AuthUnauthorized})
	off := bus.Subscribe(AuthUnauthorized, func(context.Context, Event) {})
	off()
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	bus := NewBus()
	sink := NewChannelSink(1)
	bus.AddSink(sink)

	bus.Publish(context.Background(), Event{Name: AuthUnauthorized, Path: "/skus"})
	bus.Publish(context.Background(), Event{Name: AuthUnauthorized, Path: "/me/assets"})

	if got := sink.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped event, got %d", got)
	}
	if e := <-sink.Events(); e.Path != "/skus" {
		t.Fatalf("expected first event kept, got %q", e.Path)
	}
}

func TestOnlyFiltersByName(t *testing.T) {
	bus := NewBus()
	var names []string
	bus.AddSink(Only(SinkFunc(func(_ context.Context, e Event) {
		names = append(names, e.Name)
	}), AuthUnauthorized))

	bus.Publish(context.Background(), Event{Name: "cart-changed"})
	bus.Publish(context.Background(), Event{Name: AuthUnauthorized})

	if len(names) != 1 || names[0] != AuthUnauthorized {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestLogSinkWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus()
	bus.AddSink(NewLogSink(slog.New(slog.NewTextHandler(&buf, nil))))

	bus.Publish(context.Background(), Event{Name: AuthUnauthorized, Path: "/me/assets", Status: 401})

	out := buf.String()
	for _, want := range []string{"portal: event", "event=pgc-auth-unauthorized", "path=/me/assets", "status=401"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}
