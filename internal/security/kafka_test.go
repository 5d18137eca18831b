package security

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quotaguard/internal/platform/kafka/producer"
)

type capturingProducer struct {
	mu       sync.Mutex
	messages []*producer.Message
}

func (p *capturingProducer) ProduceAsync(msg *producer.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *capturingProducer) Messages() []*producer.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*producer.Message(nil), p.messages...)
}

type KafkaSinkSuite struct {
	suite.Suite
	ctx      context.Context
	producer *capturingProducer
}

func TestKafkaSinkSuite(t *testing.T) {
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupTest() {
	s.ctx = context.Background()
	s.producer = &capturingProducer{}
}

func (s *KafkaSinkSuite) newSink(bufferSize int) *KafkaSink {
	return NewKafkaSink(s.producer, "security-events", bufferSize, slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)))
}

func (s *KafkaSinkSuite) TestPublishesQueuedEvents() {
	sink := s.newSink(8)
	sink.Emit(s.ctx, Event{
		Type:        EventAuthBypassAttempt,
		Severity:    SeverityCritical,
		Environment: "production",
		Timestamp:   time.Now(),
	})
	sink.Close()

	msgs := s.producer.Messages()
	s.Require().Len(msgs, 1)
	s.Equal("security-events", msgs[0].Topic)
	s.Equal(string(EventAuthBypassAttempt), string(msgs[0].Key))

	var event Event
	s.Require().NoError(json.Unmarshal(msgs[0].Value, &event))
	s.Equal(SeverityCritical, event.Severity)
}

func (s *KafkaSinkSuite) TestEmitAfterCloseIsDropped() {
	sink := s.newSink(8)
	sink.Close()

	sink.Emit(s.ctx, Event{Type: EventQuotaDenied, Timestamp: time.Now()})
	s.Empty(s.producer.Messages())
}

func (s *KafkaSinkSuite) TestConcurrentEmitAndClose() {
	// Emitters race against Close; every iteration must finish without a
	// send on the closed channel.
	for range 50 {
		sink := s.newSink(4)

		var wg sync.WaitGroup
		stop := make(chan struct{})
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
						sink.Emit(s.ctx, Event{Type: EventQuotaDenied, Timestamp: time.Now()})
					}
				}
			}()
		}

		sink.Close()
		close(stop)
		wg.Wait()
	}
}

func (s *KafkaSinkSuite) TestCloseIsIdempotent() {
	sink := s.newSink(8)
	sink.Close()
	sink.Close()
}
