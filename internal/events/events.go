// Package events publishes order status changes for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"storecheckout/internal/domain"

	"github.com/segmentio/kafka-go"
)

const TypeOrderStatusChanged = "order.status_changed"

type OrderStatusChanged struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"order_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status"`
	TotalCents     int64     `json:"total_cents"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func NewOrderStatusChanged(order domain.Order, previous domain.OrderStatus, at time.Time) OrderStatusChanged {
	return OrderStatusChanged{
		Type:           TypeOrderStatusChanged,
		OrderID:        order.ID,
		Status:         order.Status.String(),
		PreviousStatus: previous.String(),
		TotalCents:     order.TotalCents,
		Currency:       order.Currency,
		OccurredAt:     at.UTC(),
	}
}

type Publisher interface {
	PublishOrderStatus(ctx context.Context, evt OrderStatusChanged) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by order id so one order's events stay
// on one partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

func (p *KafkaPublisher) PublishOrderStatus(ctx context.Context, evt OrderStatusChanged) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(evt.OrderID), Value: data, Time: evt.OccurredAt})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type Noop struct{}

func (Noop) PublishOrderStatus(context.Context, OrderStatusChanged) error { return nil }
func (Noop) Close() error { return nil }
