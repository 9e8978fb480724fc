package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fareone/bookings/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	// Order events
	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
	OrderPaymentFailed = "order.payment_failed"

	// Payment events
	PaymentSessionCreated = "payment.session_created"
)

// Event payloads
type OrderCreatedEvent struct {
	OrderID    string    `json:"order_id"`
	RiderEmail string    `json:"rider_email"`
	Pickup     string    `json:"pickup"`
	Dropoff    string    `json:"dropoff"`
	Vehicle    string    `json:"vehicle"`
	Price      string    `json:"price"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Passengers int       `json:"passengers"`
	CreatedAt  time.Time `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID   string    `json:"order_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

// OrderPaymentFailedEvent flags an order left pending after a failed
// payment-session creation so back-office tooling can chase it up.
type OrderPaymentFailedEvent struct {
	OrderID    string    `json:"order_id"`
	RiderEmail string    `json:"rider_email"`
	Price      string    `json:"price"`
	Reason     string    `json:"reason"`
	FailedAt   time.Time `json:"failed_at"`
}

type PaymentSessionCreatedEvent struct {
	OrderID   string    `json:"order_id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}
