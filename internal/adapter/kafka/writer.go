// Package kafka publishes session history records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/float-query-service/internal/config"
	"github.com/couchcryptid/float-query-service/internal/domain"
)

// One record is written per query, so batches flush almost immediately.
const (
	batchTimeout = 5 * time.Millisecond
	writeTimeout = 2 * time.Second
)

// Writer produces history records to a Kafka topic.
// It implements history.Recorder.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured history topic.
// Records are keyed by session id so one session stays on one partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaHistoryTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
	}
	return &Writer{writer: w, logger: logger}
}

// Append publishes one history record.
func (w *Writer) Append(ctx context.Context, rec domain.HistoryRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish history %s: %w", rec.ID, err)
	}
	w.logger.Debug("history record published", "query_id", rec.ID, "session_id", rec.SessionID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a HistoryRecord into a Kafka message.
func serializeToMessage(rec domain.HistoryRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize history record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.SessionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "operation", Value: []byte(rec.Operation)},
			{Key: "created_at", Value: []byte(rec.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}

// DecodeMessage parses a history record published by Writer.
func DecodeMessage(msg kafkago.Message) (domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("decode history record: %w", err)
	}
	return rec, nil
}
