package security

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"quotaguard/internal/platform/kafka/producer"
	"quotaguard/pkg/platform/middleware/requesttime"
)

// EventProducer queues a message for asynchronous delivery to Kafka.
type EventProducer interface {
	ProduceAsync(msg *producer.Message) error
}

// KafkaSink fans events out to a Kafka topic for downstream SIEM ingestion.
// Events are queued to a bounded buffer and published by a background
// goroutine; when the buffer is full the event is dropped with a log line
// rather than blocking the request path.
type KafkaSink struct {
	producer EventProducer
	topic    string
	events   chan Event
	logger   *slog.Logger
	wg       sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewKafkaSink starts the sink's background publisher.
func NewKafkaSink(p EventProducer, topic string, bufferSize int, logger *slog.Logger) *KafkaSink {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	s := &KafkaSink{
		producer: p,
		topic:    topic,
		events:   make(chan Event, bufferSize),
		logger:   logger,
	}
	s.wg.Add(1)
	go s.publishLoop()
	return s
}

func (s *KafkaSink) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requesttime.Now(ctx)
	}

	// The send happens under the mutex so Close cannot close the channel
	// between the closed check and the send. The default case keeps the
	// critical section non-blocking.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.events <- event:
	default:
		s.logger.Warn("security event buffer full, event dropped",
			"event_type", event.Type,
			"severity", event.Severity,
		)
	}
}

func (s *KafkaSink) publishLoop() {
	defer s.wg.Done()
	for event := range s.events {
		value, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("failed to encode security event", "error", err)
			continue
		}
		err = s.producer.ProduceAsync(&producer.Message{
			Topic: s.topic,
			Key:   []byte(event.Type),
			Value: value,
		})
		if err != nil {
			s.logger.Error("failed to queue security event",
				"error", err,
				"event_type", event.Type,
			)
		}
	}
}

// Close drains queued events and stops the background publisher. The channel
// is closed while holding the mutex, so no Emit can be mid-send.
func (s *KafkaSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.wg.Wait()
}
