package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/order-geomap/internal/config"
	"github.com/couchcryptid/order-geomap/internal/domain"
	"github.com/couchcryptid/order-geomap/internal/observability"
)

// Proximity header values.
const (
	proximityNear = "near"
	proximityFar  = "far"
)

// Writer publishes classified orders to a Kafka topic.
// It implements pipeline.Sink.
type Writer struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// Publish sends every order of result in one WriteMessages call. Orders are
// keyed by order ID so repeated runs over the same sheet land on the same
// partition.
func (w *Writer) Publish(ctx context.Context, result domain.PipelineResult) error {
	if len(result.Orders) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(result.Orders))
	for i := range result.Orders {
		msg, err := serializeToMessage(result.RunID, result.GeneratedAt, result.Orders[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d orders: %w", len(msgs), err)
	}
	w.metrics.OrdersPublished.Add(float64(len(msgs)))
	w.logger.Debug("orders published", "run_id", result.RunID, "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ClassifiedOrder into a Kafka message.
func serializeToMessage(runID string, generatedAt time.Time, order domain.ClassifiedOrder) (kafkago.Message, error) {
	data, err := json.Marshal(order)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize order %s: %w", order.OrderID, err)
	}
	proximity := proximityFar
	if order.Near {
		proximity = proximityNear
	}
	return kafkago.Message{
		Key:   []byte(order.OrderID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "proximity", Value: []byte(proximity)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
