package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// Event types.
const (
	TypePaymentCompleted = "payment.completed"
)

// PaymentCompleted is published once an order transitions to paid or on-hold.
type PaymentCompleted struct {
	Type                string    `json:"type"`
	OrderID             string    `json:"order_id"`
	OrderStatus         string    `json:"order_status"`
	AuthorizationID     string    `json:"authorization_id"`
	AuthorizationStatus string    `json:"authorization_status"`
	ChargeID            string    `json:"charge_id,omitempty"`
	Amount              int64     `json:"amount"`
	Currency            string    `json:"currency"`
	Flow                string    `json:"flow"`
	OccurredAt          time.Time `json:"occurred_at"`
}

// Publisher delivers checkout events to downstream consumers.
type Publisher interface {
	PublishPaymentCompleted(ctx context.Context, event PaymentCompleted) error
}

// KafkaPublisher publishes events to a Kafka topic, keyed by order id so
// events for one order stay on one partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher creates a new KafkaPublisher.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishPaymentCompleted sends the event and waits for the broker ack.
func (p *KafkaPublisher) PublishPaymentCompleted(ctx context.Context, event PaymentCompleted) error {
	if event.Type == "" {
		event.Type = TypePaymentCompleted
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("publish %s for order %s: %w", event.Type, event.OrderID, err)
	}
	return nil
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishPaymentCompleted(context.Context, PaymentCompleted) error { return nil }

// Ensure publishers implement Publisher.
var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = NopPublisher{}
)
