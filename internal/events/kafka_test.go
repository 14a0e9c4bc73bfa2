package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	closed  bool
	failAll bool
	gate    chan struct{}
}

func (w *memWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.gate != nil {
		<-w.gate
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAll {
		return errors.New("broker unavailable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(EventOrderPlaced, "req-1", OrderPlacedPayload{OrderID: 5, UserID: "u1", PaymentMethod: "cod", Total: "10.50"})

	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, ProducerName, env.Producer)
	assert.Equal(t, "req-1", env.CorrelationID)

	var payload OrderPlacedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, 5, payload.OrderID)
}

func TestKafkaPublisher_FlushesOnClose(t *testing.T) {
	w := &memWriter{}
	p := NewKafkaPublisher(w, 16, zerolog.Nop())

	for i := 0; i < 3; i++ {
		env, err := NewEnvelope(EventCartLineAdded, "", CartLineAddedPayload{UserID: "u1", ProductID: i, Quantity: 1})
		require.NoError(t, err)
		require.NoError(t, p.Publish(context.Background(), "u1", env))
	}
	require.NoError(t, p.Close())

	assert.True(t, w.closed)
	require.Len(t, w.msgs, 3)
	assert.Equal(t, []byte("u1"), w.msgs[0].Key)
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, []byte(EventCartLineAdded), w.msgs[0].Headers[0].Value)
}

func TestKafkaPublisher_PublishAfterClose(t *testing.T) {
	p := NewKafkaPublisher(&memWriter{}, 1, zerolog.Nop())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	err := p.Publish(context.Background(), "k", Envelope{EventType: EventUserLoggedIn})

	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestKafkaPublisher_FullQueueDoesNotBlock(t *testing.T) {
	w := &memWriter{gate: make(chan struct{})}
	p := NewKafkaPublisher(w, 1, zerolog.Nop())

	for i := 0; i < 10; i++ {
		assert.NoError(t, p.Publish(context.Background(), "k", Envelope{EventType: EventUserLoggedIn}))
	}

	close(w.gate)
	require.NoError(t, p.Close())
	assert.LessOrEqual(t, len(w.msgs), 2)
	assert.NotEmpty(t, w.msgs)
}

func TestKafkaPublisher_WriteFailureIsNotFatal(t *testing.T) {
	w := &memWriter{failAll: true}
	p := NewKafkaPublisher(w, 4, zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(), "k", Envelope{EventType: EventOrderPlaced}))
	require.NoError(t, p.Close())

	assert.Empty(t, w.msgs)
	assert.True(t, w.closed)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}

	assert.NoError(t, p.Publish(context.Background(), "k", Envelope{}))
	assert.NoError(t, p.Close())
}
