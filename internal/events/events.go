// Package events publishes domain events to an external broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	OrderCreated      = "order.created"
	OrderFulfilled    = "order.fulfilled"
	OrderCancelled    = "order.cancelled"
	InventoryAdjusted = "inventory.adjusted"
)

const producerName = "beverage-api"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Key           string          `json:"key,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderPayload struct {
	OrderID    uint   `json:"order_id"`
	EmployeeID uint   `json:"employee_id"`
	BeverageID uint   `json:"beverage_id"`
	Status     string `json:"status"`
	ActorID    uint   `json:"actor_id"`
}

type InventoryPayload struct {
	BeverageID      uint   `json:"beverage_id"`
	TransactionType string `json:"transaction_type"`
	Quantity        int    `json:"quantity"`
	StockBefore     int    `json:"stock_before"`
	StockAfter      int    `json:"stock_after"`
	OrderID         *uint  `json:"order_id,omitempty"`
	PerformedBy     uint   `json:"performed_by"`
}

// keyed payloads name the entity whose events must stay in order.
type keyed interface {
	PartitionKey() string
}

func (p OrderPayload) PartitionKey() string     { return fmt.Sprintf("order:%d", p.OrderID) }
func (p InventoryPayload) PartitionKey() string { return fmt.Sprintf("beverage:%d", p.BeverageID) }

func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       raw,
	}
	if k, ok := payload.(keyed); ok {
		env.Key = k.PartitionKey()
	}
	return env, nil
}

// PartitionKey is the entity key when the payload has one, else the
// correlation id.
func (e Envelope) PartitionKey() string {
	if e.Key != "" {
		return e.Key
	}
	return e.CorrelationID
}

// Decode unpacks an envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Emit publishes without failing the caller; errors are only logged.
func Emit(ctx context.Context, pub Publisher, log logrus.FieldLogger, eventType, correlationID string, payload any) {
	if pub == nil {
		return
	}
	env, err := NewEnvelope(eventType, correlationID, payload)
	if err == nil {
		err = pub.Publish(ctx, env)
	}
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"event_type":     eventType,
			"correlation_id": correlationID,
		}).Warn("event not published")
	}
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }
func (Noop) Close() error                            { return nil }
