package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/power-outage-monitor/internal/config"
	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

// Writer publishes check events to a Kafka topic.
// It implements pipeline.EventPublisher.
type Writer struct {
	writer  *kafkago.Writer
	brokers []string
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured check topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, brokers: cfg.KafkaBrokers, logger: logger}
}

// Publish writes one check event. Events are keyed by site name so a site's
// history stays on one partition in order.
func (w *Writer) Publish(ctx context.Context, event domain.CheckEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish check event %s: %w", event.CheckID, err)
	}
	w.logger.Debug("check event published", "check_id", event.CheckID, "site", event.SiteName)
	return nil
}

// CheckReadiness dials the first broker.
func (w *Writer) CheckReadiness(ctx context.Context) error {
	if len(w.brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	conn, err := kafkago.DialContext(ctx, "tcp", w.brokers[0])
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	return conn.Close()
}

// Close flushes pending messages and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a CheckEvent into a Kafka message.
func serializeToMessage(event domain.CheckEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize check event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.SiteName),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "site_power", Value: []byte(event.SitePower)},
			{Key: "confidence", Value: []byte(event.Confidence)},
			{Key: "checked_at", Value: []byte(event.CheckedAt.Format(time.RFC3339))},
		},
	}, nil
}
