package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storecheckout/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysByOrder(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{writer: w}
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	order := domain.Order{ID: "order-1", Status: domain.OrderStatusCompleted, TotalCents: 900, Currency: "USD"}

	require.NoError(t, p.PublishOrderStatus(context.Background(), NewOrderStatusChanged(order, domain.OrderStatusPendingPayment, at)))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "order-1", string(w.msgs[0].Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	require.Equal(t, TypeOrderStatusChanged, got["type"])
	require.Equal(t, "completed", got["status"])
	require.Equal(t, "pending-payment", got["previous_status"])
	require.EqualValues(t, 900, got["total_cents"])

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}
