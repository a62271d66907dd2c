// Package events publishes order-lifecycle events to Kafka.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicOrderSettled       = "order.settled"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Payload      json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload; panics on unmarshalable payloads, which would
// be a programming error.
func NewEnvelope(eventType string, payload any) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "cafe-api",
		Payload:      raw,
	}
}

// OrderCreatedPayload announces a new order claiming a table.
type OrderCreatedPayload struct {
	OrderID      string `json:"order_id"`
	OrderCode    string `json:"order_code"`
	CustomerName string `json:"customer_name"`
	TableID      string `json:"table_id"`
	Status       string `json:"status"`
}

// OrderStatusChangedPayload announces an order (or one of its lines)
// changing status.
type OrderStatusChangedPayload struct {
	OrderID     string `json:"order_id"`
	OrderCode   string `json:"order_code"`
	Status      string `json:"status"`
	OrderMenuID string `json:"order_menu_id,omitempty"`
	MenuStatus  string `json:"menu_status,omitempty"`
}

// OrderSettledPayload announces a settled payment.
type OrderSettledPayload struct {
	OrderID    string `json:"order_id"`
	OrderCode  string `json:"order_code"`
	GatewayRef string `json:"gateway_ref"`
	PaidAmount int64  `json:"paid_amount"`
}
