// Package events publishes storefront activity (logins, cart additions, orders) for
// downstream analytics.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventUserLoggedIn  = "UserLoggedIn"
	EventCartLineAdded = "CartLineAdded"
	EventOrderPlaced   = "OrderPlaced"
)

// ProducerName identifies this service in envelopes.
const ProducerName = "storefront"

// Envelope wraps every published payload.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type UserLoggedInPayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type CartLineAddedPayload struct {
	UserID    string `json:"user_id"`
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderPlacedPayload struct {
	OrderID       int    `json:"order_id"`
	UserID        string `json:"user_id"`
	PaymentMethod string `json:"payment_method"`
	Total         string `json:"total"`
}

// NewEnvelope wraps payload in an envelope with a fresh event ID.
func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      ProducerName,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// Publisher sends envelopes. Publish never blocks on the broker.
type Publisher interface {
	// Publish enqueues env under the partition key.
	Publish(ctx context.Context, key string, env Envelope) error

	// Close flushes queued events and releases resources.
	Close() error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, key string, env Envelope) error { return nil }

func (NopPublisher) Close() error { return nil }
