package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/order-geomap/internal/domain"
)

// ProgressFunc observes annotation progress. processed counts rows whose
// lookup has finished and never decreases within a run.
type ProgressFunc func(processed, total int)

// Resolver maps a shipping postal code to a coordinate or the unresolved marker.
type Resolver interface {
	Resolve(ctx context.Context, code string) domain.Resolution
}

// Annotator attaches coordinates to raw rows and drops rows whose postal code
// did not resolve.
type Annotator struct {
	resolver Resolver
	workers  int
	logger   *slog.Logger
}

// NewAnnotator creates an Annotator. workers bounds concurrent lookups;
// values below 2 resolve rows one at a time.
func NewAnnotator(r Resolver, workers int, logger *slog.Logger) *Annotator {
	if workers < 1 {
		workers = 1
	}
	return &Annotator{resolver: r, workers: workers, logger: logger}
}

// Annotate resolves every row and returns the resolved ones in input order.
// Once ctx is done no further lookups start and the remaining rows are
// treated as unresolved.
func (a *Annotator) Annotate(ctx context.Context, rows []domain.RawRow, progress ProgressFunc) []domain.AnnotatedRow {
	if len(rows) == 0 {
		return []domain.AnnotatedRow{}
	}

	resolved := make([]domain.Resolution, len(rows))
	report := newProgress(len(rows), progress)

	if a.workers == 1 {
		for i := range rows {
			if ctx.Err() != nil {
				break
			}
			resolved[i] = a.resolver.Resolve(ctx, rows[i].ShippingZip)
			report.done()
		}
	} else {
		var g errgroup.Group
		g.SetLimit(a.workers)
		for i := range rows {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				// Each goroutine owns resolved[i].
				resolved[i] = a.resolver.Resolve(ctx, rows[i].ShippingZip)
				report.done()
				return nil
			})
		}
		_ = g.Wait()
	}

	out := make([]domain.AnnotatedRow, 0, len(rows))
	for i, res := range resolved {
		if !res.Resolved {
			a.logger.Debug("row dropped, zip unresolved",
				"line", rows[i].Line,
				"order_id", rows[i].OrderID,
				"zip", rows[i].ShippingZip,
			)
			continue
		}
		out = append(out, domain.AnnotatedRow{RawRow: rows[i], Coordinate: res.Coordinate})
	}
	return out
}

// progress serializes callbacks so observers see a strictly increasing count
// even when lookups finish out of order.
type progress struct {
	mu        sync.Mutex
	processed int
	total     int
	fn        ProgressFunc
}

func newProgress(total int, fn ProgressFunc) *progress {
	return &progress{total: total, fn: fn}
}

func (p *progress) done() {
	if p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	p.fn(p.processed, p.total)
}

// distinctCodes counts the postal codes a run would look up, keyed exactly.
func distinctCodes(rows []domain.RawRow) int {
	seen := make(map[string]struct{}, len(rows))
	for i := range rows {
		seen[rows[i].ShippingZip] = struct{}{}
	}
	return len(seen)
}
