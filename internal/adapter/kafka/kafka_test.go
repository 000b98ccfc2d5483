package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/order-geomap/internal/config"
	"github.com/couchcryptid/order-geomap/internal/domain"
	"github.com/couchcryptid/order-geomap/internal/observability"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	order := domain.ClassifiedOrder{
		AggregatedOrder: domain.AggregatedOrder{
			OrderID:      "100",
			Total:        decimal.RequireFromString("15.5"),
			Quantity:     5,
			ProductNames: "Widget, Gadget",
			Coordinate:   domain.Coordinate{Lat: 51.501009, Lon: -0.141588},
		},
		Near:           true,
		MatchingLabels: []string{"London - UB8 2DB"},
	}

	msg, err := serializeToMessage("run-1", now, order)
	require.NoError(t, err)

	assert.Equal(t, []byte("100"), msg.Key)
	assert.Contains(t, string(msg.Value), `"order_id":"100"`)
	assert.Contains(t, string(msg.Value), `"total":"15.5"`)
	assert.Contains(t, string(msg.Value), `"matching_labels":["London - UB8 2DB"]`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "run_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[0].Value)
	assert.Equal(t, "proximity", msg.Headers[1].Key)
	assert.Equal(t, []byte("near"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeToMessage_Far(t *testing.T) {
	msg, err := serializeToMessage("run-2", time.Now(), domain.ClassifiedOrder{
		AggregatedOrder: domain.AggregatedOrder{OrderID: "200"},
		MatchingLabels:  []string{},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("far"), msg.Headers[1].Value)
}

func TestWriter_PublishEmptyResultIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaSinkTopic: "unused"}
	metrics := observability.NewMetricsForTesting()
	w := NewWriter(cfg, metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Publish(context.Background(), domain.PipelineResult{RunID: "r", Orders: []domain.ClassifiedOrder{}}))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.OrdersPublished))
}
