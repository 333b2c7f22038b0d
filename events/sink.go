package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// Sink receives every event published on a [Bus]. Emit runs on the
// publisher's goroutine, so sinks must not block for long.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// Only forwards events whose name is in names to sink.
func Only(sink Sink, names ...string) Sink {
	names = slices.Clone(names)
	return SinkFunc(func(ctx context.Context, event Event) {
		if slices.Contains(names, event.Name) {
			sink.Emit(ctx, event)
		}
	})
}

// ChannelSink buffers events for a consumer goroutine. When the buffer is
// full the event is dropped and counted.
type ChannelSink struct {
	events  chan Event
	dropped atomic.Uint64
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(_ context.Context, event Event) {
	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
	}
}

// Events is the receive side of the buffer.
func (s *ChannelSink) Events() <-chan Event { return s.events }

// Dropped reports how many events did not fit in the buffer.
func (s *ChannelSink) Dropped() uint64 { return s.dropped.Load() }

// JSONWriterSink writes one JSON document per line.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		w = io.Discard
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(event)
}

// LogSink records events on a structured logger at info level.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, event Event) {
	attrs := []slog.Attr{
		slog.String("event", event.Name),
		slog.String("event_id", event.ID),
	}
	if event.Path != "" {
		attrs = append(attrs, slog.String("path", event.Path))
	}
	if event.Status != 0 {
		attrs = append(attrs, slog.Int("status", event.Status))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "portal: event", attrs...)
}
