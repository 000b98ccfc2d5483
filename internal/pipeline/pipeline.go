// Package pipeline runs the geocode, aggregate, classify, and assemble stages
// over one uploaded order sheet.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/order-geomap/internal/domain"
	"github.com/couchcryptid/order-geomap/internal/observability"
)

// Sink receives every completed result, e.g. to publish it downstream.
type Sink interface {
	Publish(ctx context.Context, result domain.PipelineResult) error
}

// Pipeline turns raw order rows into a classified, map-ready result.
type Pipeline struct {
	annotator *Annotator
	refs      []domain.ReferencePoint
	sink      Sink
	logger    *slog.Logger
	metrics   *observability.Metrics
	draining  atomic.Bool
}

// New creates a Pipeline classifying against refs. sink may be nil.
func New(a *Annotator, refs []domain.ReferencePoint, sink Sink, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		annotator: a,
		refs:      refs,
		sink:      sink,
		logger:    logger,
		metrics:   metrics,
	}
}

// References returns the reference set results are classified against.
func (p *Pipeline) References() []domain.ReferencePoint {
	out := make([]domain.ReferencePoint, len(p.refs))
	copy(out, p.refs)
	return out
}

// Drain marks the pipeline as shutting down so readiness checks fail while
// in-flight runs finish.
func (p *Pipeline) Drain() {
	p.draining.Store(true)
}

// CheckReadiness returns nil while the pipeline accepts new runs.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.draining.Load() {
		return errors.New("pipeline is draining")
	}
	return nil
}

// Run processes rows end to end. Geocoding failures never fail a run; the
// affected rows are dropped and counted in Stats. The only error is ctx
// ending before every row was looked up.
func (p *Pipeline) Run(ctx context.Context, rows []domain.RawRow, progress ProgressFunc) (domain.PipelineResult, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Inc()
	defer p.metrics.PipelineRunning.Dec()
	p.metrics.RowsIngested.Add(float64(len(rows)))

	annotated := p.annotator.Annotate(ctx, rows, progress)
	if err := ctx.Err(); err != nil {
		p.metrics.PipelineRuns.WithLabelValues("error").Inc()
		p.logger.Warn("pipeline run aborted", "rows", len(rows), "error", err)
		return domain.PipelineResult{}, fmt.Errorf("annotate rows: %w", err)
	}

	dropped := len(rows) - len(annotated)
	p.metrics.RowsDropped.Add(float64(dropped))

	orders := domain.Aggregate(annotated)
	classified := domain.Classify(orders, p.refs)
	result := domain.Assemble(classified, p.refs)

	result.Stats.InputRows = len(rows)
	result.Stats.ResolvedRows = len(annotated)
	result.Stats.DroppedRows = dropped
	result.Stats.DistinctCodes = distinctCodes(rows)

	p.metrics.OrdersProduced.WithLabelValues("near").Add(float64(result.Stats.NearOrders))
	p.metrics.OrdersProduced.WithLabelValues("far").Add(float64(result.Stats.Orders - result.Stats.NearOrders))
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.PipelineRuns.WithLabelValues("success").Inc()

	p.logger.Info("pipeline run complete",
		"run_id", result.RunID,
		"input_rows", result.Stats.InputRows,
		"dropped_rows", result.Stats.DroppedRows,
		"distinct_codes", result.Stats.DistinctCodes,
		"orders", result.Stats.Orders,
		"near_orders", result.Stats.NearOrders,
		"duration", time.Since(start),
	)

	if p.sink != nil {
		if err := p.sink.Publish(ctx, result); err != nil {
			p.logger.Error("publish result failed", "run_id", result.RunID, "error", err)
		}
	}
	return result, nil
}
