// Command ordermap geocodes an order sheet, aggregates it per order, and
// classifies each order against the reference points. The result is written
// as JSON or GeoJSON.
//
// Usage:
//
//	go run ./cmd/ordermap -in orders.xlsx -out map.geojson -format geojson
//
// Geocoding, reference points, and logging are configured through the same
// environment variables as the ordermapd service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/order-geomap/internal/adapter/geojson"
	kafkaadapter "github.com/couchcryptid/order-geomap/internal/adapter/kafka"
	"github.com/couchcryptid/order-geomap/internal/adapter/sheet"
	"github.com/couchcryptid/order-geomap/internal/app"
	"github.com/couchcryptid/order-geomap/internal/config"
	"github.com/couchcryptid/order-geomap/internal/domain"
	"github.com/couchcryptid/order-geomap/internal/observability"
	"github.com/couchcryptid/order-geomap/internal/pipeline"
)

const progressEvery = 25

func main() {
	in := flag.String("in", "", "order sheet to read (.xlsx or .csv)")
	out := flag.String("out", "", "output file (default stdout)")
	format := flag.String("format", "json", "output format: json or geojson")
	publish := flag.Bool("publish", false, "also publish classified orders to KAFKA_SINK_TOPIC")
	flag.Parse()

	if *in == "" || (*format != "json" && *format != "geojson") {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*in, *out, *format, *publish); err != nil {
		var schemaErr *domain.SchemaError
		if errors.As(err, &schemaErr) {
			fmt.Fprintln(os.Stderr, schemaErr.Error())
			os.Exit(1)
		}
		slog.Error("ordermap failed", "error", err)
		os.Exit(1)
	}
}

func run(in, out, format string, publish bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewCLILogger(cfg)
	metrics := observability.NewMetrics()

	var sink pipeline.Sink
	if publish {
		if !cfg.KafkaEnabled() {
			return errors.New("-publish requires KAFKA_BROKERS")
		}
		writer := kafkaadapter.NewWriter(cfg, metrics, logger)
		defer writer.Close()
		sink = writer
	}

	rows, err := sheet.ReadFile(in)
	if err != nil {
		return err
	}
	logger.Info("order sheet loaded", "file", in, "rows", len(rows))

	p, err := app.NewPipeline(cfg, sink, logger, metrics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := p.Run(ctx, rows, logProgress(logger))
	if err != nil {
		return err
	}

	if err := writeOutput(out, result, format); err != nil {
		return err
	}

	logger.Info("map written",
		"run_id", result.RunID,
		"orders", result.Stats.Orders,
		"near_orders", result.Stats.NearOrders,
		"dropped_rows", result.Stats.DroppedRows,
		"out", out,
	)
	return nil
}

func logProgress(logger *slog.Logger) pipeline.ProgressFunc {
	return func(processed, total int) {
		if processed%progressEvery == 0 || processed == total {
			logger.Info("geocoding", "processed", processed, "total", total)
		}
	}
}

// writeOutput writes the result to path, or stdout when path is empty.
func writeOutput(path string, result domain.PipelineResult, format string) error {
	if path == "" {
		return writeResult(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writeResult(f, result, format); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func writeResult(w io.Writer, result domain.PipelineResult, format string) error {
	if format == "geojson" {
		data, err := geojson.Marshal(result)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
