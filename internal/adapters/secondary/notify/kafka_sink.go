package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tiback/tiback-client/internal/core/domain"
)

// MessageWriter is the part of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka relay.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaSink relays notifications to a Kafka topic as JSON, keyed by the ticket
// id so every event for one ticket lands on the same partition.
type KafkaSink struct {
	writer  MessageWriter
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewKafkaSink creates a sink backed by a kafka-go writer.
func NewKafkaSink(cfg KafkaConfig, logger *slog.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return NewKafkaSinkWithWriter(writer, cfg.Topic, cfg.WriteTimeout, logger), nil
}

// NewKafkaSinkWithWriter wraps an existing writer.
func NewKafkaSinkWithWriter(writer MessageWriter, topic string, timeout time.Duration, logger *slog.Logger) *KafkaSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaSink{
		writer:  writer,
		topic:   topic,
		timeout: timeout,
		logger:  logger.With("component", "notification_kafka", "topic", topic),
	}
}

// Publish writes one record.
func (s *KafkaSink) Publish(ctx context.Context, n domain.Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("kafka: encode notification: %w", err)
	}

	msg := kafka.Message{
		Key:   messageKey(n),
		Value: value,
		Time:  n.Timestamp,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(n.Type)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.writer.WriteMessages(writeCtx, msg); err != nil {
		s.logger.Error("failed to relay notification", "notification_id", n.ID, "error", err)
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// messageKey is the ticket id, or the event type for events about no ticket.
func messageKey(n domain.Notification) []byte {
	if n.EntityID != nil {
		return []byte(strconv.FormatInt(*n.EntityID, 10))
	}
	return []byte(n.Type)
}
