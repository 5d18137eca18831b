package security

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quotaguard/pkg/platform/middleware/requesttime"
)

var eventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quotaguard_security_events_total",
	Help: "Security events emitted, by type and severity",
}, []string{"type", "severity"})

// Sink receives security events. Implementations must be safe for concurrent
// use and must not block the caller beyond a bounded, short time.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// LogSink writes events as structured JSON through slog. This is the default
// sink; observability collectors scrape the process log stream.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requesttime.Now(ctx)
	}
	eventsEmitted.WithLabelValues(string(event.Type), string(event.Severity)).Inc()

	level := slog.LevelInfo
	switch event.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityCritical:
		level = slog.LevelError
	}

	attrs := []any{
		"event_type", event.Type,
		"severity", event.Severity,
		"environment", event.Environment,
		"timestamp", event.Timestamp,
	}
	for k, v := range event.Context {
		attrs = append(attrs, k, v)
	}
	s.logger.Log(ctx, level, event.Message, attrs...)
}

// Fanout emits to every configured sink in order.
type Fanout []Sink

func (f Fanout) Emit(ctx context.Context, event Event) {
	for _, s := range f {
		s.Emit(ctx, event)
	}
}

// MemorySink records events for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of everything emitted so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType filters recorded events by type.
func (s *MemorySink) ByType(t EventType) []Event {
	var out []Event
	for _, e := range s.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
