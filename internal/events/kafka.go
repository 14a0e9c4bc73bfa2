package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

var droppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "storefront_events_dropped_total",
	Help: "Events dropped because the publish queue was full or the broker rejected them.",
}, []string{"reason"})

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues envelopes in memory and writes them from one goroutine.
type KafkaPublisher struct {
	w      MessageWriter
	inbox  chan kafka.Message
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
	logger zerolog.Logger
}

// NewKafkaWriter builds the writer for topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// NewKafkaPublisher starts the writer loop. buf bounds the in-memory queue.
func NewKafkaPublisher(w MessageWriter, buf int, logger zerolog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		w:      w,
		inbox:  make(chan kafka.Message, buf),
		done:   make(chan struct{}),
		logger: logger.With().Str("component", "kafka_publisher").Logger(),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for m := range p.inbox {
		if err := p.w.WriteMessages(context.Background(), m); err != nil {
			droppedEvents.WithLabelValues("write").Inc()
			p.logger.Error().Err(err).Str("key", string(m.Key)).Msg("failed to write event")
		}
	}
}

// Publish enqueues env. A full queue drops the event rather than blocking.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		droppedEvents.WithLabelValues("queue_full").Inc()
		p.logger.Warn().Str("event_type", env.EventType).Msg("event queue full, dropping event")
		return nil
	}
}

// Close flushes queued events and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	<-p.done
	return p.w.Close()
}
