package eventpublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/iho/ledgerbot/internal/domain"
)

const defaultWriteTimeout = 10 * time.Second

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// envelope is the message value written to Kafka.
type envelope struct {
	ID            string         `json:"id"`
	EventType     string         `json:"event_type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// KafkaPublisher writes outbox events to a topic. Messages are keyed by
// aggregate id so events of one transfer keep their order.
type KafkaPublisher struct {
	writer       messageWriter
	writeTimeout time.Duration
	logger       zerolog.Logger
}

// NewKafkaPublisher creates a synchronous writer for topic. Writes wait for
// all in-sync replicas, so a nil error means the event is durable.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: defaultWriteTimeout,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error().Msgf(msg, args...)
		}),
	}

	return newKafkaPublisher(writer, logger)
}

func newKafkaPublisher(w messageWriter, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:       w,
		writeTimeout: defaultWriteTimeout,
		logger:       logger.With().Str("component", "kafka").Logger(),
	}
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	value, err := json.Marshal(envelope{
		ID:            event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		CreatedAt:     event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("write event %s: %w", event.ID, err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("aggregate_id", event.AggregateID).
		Msg("event written")

	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
