//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/order-geomap/internal/adapter/kafka"
	"github.com/couchcryptid/order-geomap/internal/config"
	"github.com/couchcryptid/order-geomap/internal/domain"
	"github.com/couchcryptid/order-geomap/internal/geocode"
	"github.com/couchcryptid/order-geomap/internal/observability"
	"github.com/couchcryptid/order-geomap/internal/pipeline"
)

const testSinkTopic = "test-classified-orders"

// publishedOrder holds a deserialized message read from the sink topic.
type publishedOrder struct {
	Order   domain.ClassifiedOrder
	Key     string
	Headers map[string]string
}

type tableGeocoder map[string]domain.Coordinate

func (g tableGeocoder) Lookup(_ context.Context, query string) (domain.GeocodingResult, error) {
	c, ok := g[query]
	if !ok {
		return domain.GeocodingResult{}, domain.ErrNoMatch
	}
	return domain.GeocodingResult{Lat: c.Lat, Lon: c.Lon}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("order-geomap-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// readPublished reads a single message from the sink consumer and deserializes it.
func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedOrder {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var order domain.ClassifiedOrder
	require.NoError(t, json.Unmarshal(msg.Value, &order), "unmarshal sink message")

	return publishedOrder{Order: order, Key: string(msg.Key), Headers: headers}
}

func row(id, total string, qty int, product, zip string) domain.RawRow {
	return domain.RawRow{
		OrderID:      id,
		Total:        decimal.RequireFromString(total),
		Quantity:     qty,
		ProductName:  product,
		CustomerName: "Customer " + id,
		ShippingZip:  zip,
	}
}

// TestPipelinePublishesToKafka runs the full pipeline with kafka.Writer as its
// sink and verifies every classified order reaches the topic.
func TestPipelinePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}
	metrics := observability.NewMetricsForTesting()

	writer := kafka.NewWriter(cfg, metrics, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	g := tableGeocoder{
		"SW1A 1AA": {Lat: 51.501009, Lon: -0.141588},
		"M1 1AE":   {Lat: 53.4794, Lon: -2.2453},
		"EH1 1YZ":  {Lat: 55.953251, Lon: -3.188267},
	}
	resolver := geocode.NewResolver(g, geocode.NewCache(0), geocode.Options{}, discardLogger(), metrics)
	annotator := pipeline.NewAnnotator(resolver, 2, discardLogger())
	p := pipeline.New(annotator, config.DefaultReferencePoints(80000), writer, discardLogger(), metrics)

	rows := []domain.RawRow{
		row("100", "10.00", 2, "Widget", "SW1A 1AA"),
		row("100", "5.50", 3, "Gadget", "SW1A 1AA"),
		row("200", "20.00", 1, "Gizmo", "M1 1AE"),
		row("300", "3.00", 1, "Thing", "EH1 1YZ"),
		row("400", "1.00", 1, "Lost", "INVALID"),
	}

	result, err := p.Run(ctx, rows, nil)
	require.NoError(t, err)
	require.Len(t, result.Orders, 3)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := map[string]publishedOrder{}
	for len(received) < len(result.Orders) {
		po := readPublished(ctx, t, consumer)
		received[po.Key] = po
	}

	for _, po := range received {
		assert.Equal(t, result.RunID, po.Headers["run_id"])
		assert.Equal(t, po.Order.OrderID, po.Key)
		_, err := time.Parse(time.RFC3339, po.Headers["generated_at"])
		assert.NoError(t, err, "generated_at should be valid RFC3339")
	}

	london := received["100"]
	assert.Equal(t, "near", london.Headers["proximity"])
	assert.Equal(t, "15.5", london.Order.Total.String())
	assert.Equal(t, "Widget, Gadget", london.Order.ProductNames)
	assert.Equal(t, []string{"London - UB8 2DB"}, london.Order.MatchingLabels)

	assert.Equal(t, "near", received["200"].Headers["proximity"])
	assert.Equal(t, "far", received["300"].Headers["proximity"])
	assert.NotContains(t, received, "400")
}
