package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-guidance-service/internal/config"
	"github.com/couchcryptid/storm-guidance-service/internal/domain"
)

// Writer produces conversation messages to a Kafka topic.
// It implements journal.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured journal topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAnswerTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes conversation messages in a single
// WriteMessages call. Messages are keyed by region so one region's history
// stays ordered within a partition.
func (w *Writer) LoadBatch(ctx context.Context, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(messages))
	for i := range messages {
		msg, err := serializeToMessage(messages[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("journal batch written", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a conversation Message into a Kafka message.
func serializeToMessage(m domain.Message) (kafkago.Message, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize conversation message: %w", err)
	}

	role := "answer"
	if m.FromUser {
		role = "question"
	}
	key := m.Region
	if key == "" {
		key = "none"
	}

	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Time:  m.CreatedAt,
		Headers: []kafkago.Header{
			{Key: "message_id", Value: []byte(m.ID)},
			{Key: "role", Value: []byte(role)},
			{Key: "preferred", Value: []byte(strconv.FormatBool(m.Preferred))},
			{Key: "created_at", Value: []byte(m.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
