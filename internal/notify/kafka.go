package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/frahmantamala/paylink/internal/core/events"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WebhookMessage is what merchant webhook consumers read from the topic.
type WebhookMessage struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	PaymentID     string    `json:"payment_id"`
	PaymentLinkID string    `json:"payment_link_id"`
	MerchantID    string    `json:"merchant_id"`
	TxSignature   string    `json:"tx_signature"`
	Chain         string    `json:"chain"`
	Amount        string    `json:"amount"`
	Token         string    `json:"token"`
	Status        string    `json:"status"`
	Confirmations int64     `json:"confirmations"`
}

// KafkaDispatcher publishes payment state changes for webhook delivery.
// Messages are keyed by payment link id so one link's events stay ordered.
type KafkaDispatcher struct {
	writer MessageWriter
	topic  string
	logger *slog.Logger
}

func NewKafkaDispatcher(brokers []string, topic string, logger *slog.Logger) (*KafkaDispatcher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka dispatcher requires at least one broker")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
	}
	return NewDispatcherWithWriter(writer, topic, logger), nil
}

func NewDispatcherWithWriter(writer MessageWriter, topic string, logger *slog.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, event *events.PaymentEvent) error {
	payload, err := json.Marshal(NewWebhookMessage(event))
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	err = d.writer.WriteMessages(ctx, kafka.Message{
		Topic: d.topic,
		Key:   []byte(event.PaymentLinkID),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType())},
			{Key: "event_id", Value: []byte(event.EventID())},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write webhook message: %w", err)
	}

	d.logger.Debug("webhook message written", "topic", d.topic, "payment_id", event.PaymentID)
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

func NewWebhookMessage(event *events.PaymentEvent) WebhookMessage {
	return WebhookMessage{
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		OccurredAt:    event.OccurredAt(),
		PaymentID:     event.PaymentID,
		PaymentLinkID: event.PaymentLinkID,
		MerchantID:    event.MerchantID,
		TxSignature:   event.TxSignature,
		Chain:         event.Chain,
		Amount:        event.Amount,
		Token:         event.Token,
		Status:        event.Status,
		Confirmations: event.Confirmations,
	}
}
