// Package geocode turns shipping postal codes into coordinates. It owns the
// per-run memoization cache and isolates every provider failure behind the
// unresolved marker, so callers never see a geocoding error.
package geocode

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/order-geomap/internal/domain"
	"github.com/couchcryptid/order-geomap/internal/observability"
)

const maxRetryBackoff = 5 * time.Second

// Options tunes how a Resolver talks to its provider.
type Options struct {
	Timeout      time.Duration // per attempt; zero means no extra deadline
	Retries      int           // extra attempts after the first, for retryable failures only
	RetryBackoff time.Duration // wait before the first retry, doubled each time
	Limiter      *rate.Limiter // shared across workers; nil means unlimited
	Clock        clockwork.Clock
}

// Resolver resolves postal codes through a domain.Geocoder, memoizing every
// outcome by the exact code string.
type Resolver struct {
	geocoder domain.Geocoder
	cache    *Cache
	opts     Options
	flights  singleflight.Group
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// flight is the outcome of one shared provider lookup. abandoned is set when
// the lookup stopped because the context that ran it was cancelled.
type flight struct {
	res       domain.Resolution
	abandoned bool
}

// NewResolver creates a Resolver. The cache may be shared between runs; pass
// a fresh one for strictly per-run memoization.
func NewResolver(g domain.Geocoder, cache *Cache, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if cache == nil {
		cache = NewCache(0)
	}
	return &Resolver{
		geocoder: g,
		cache:    cache,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve returns the coordinate for code, or the unresolved marker when the
// provider fails in any way. The first call for a code queries the provider;
// later calls, and concurrent callers waiting on the same code, reuse that
// outcome. Codes are keyed exactly as given.
//
// Concurrent callers share one lookup run under the context of whoever
// started it. If that caller goes away mid-lookup, the others start their own
// instead of inheriting its cancellation.
func (r *Resolver) Resolve(ctx context.Context, code string) domain.Resolution {
	if res, ok := r.cache.Get(code); ok {
		r.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return res
	}
	r.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	for {
		v, _, _ := r.flights.Do(code, func() (any, error) {
			if res, ok := r.cache.Get(code); ok {
				return flight{res: res}, nil
			}
			res := r.lookup(ctx, code)
			// A cancelled run says nothing about the code itself.
			if !res.Resolved && ctx.Err() != nil {
				return flight{res: res, abandoned: true}, nil
			}
			r.cache.Put(code, res)
			return flight{res: res}, nil
		})
		f := v.(flight)
		if !f.abandoned || ctx.Err() != nil {
			return f.res
		}
		r.logger.Debug("geocode lookup abandoned by another caller, retrying", "zip", code)
	}
}

func (r *Resolver) lookup(ctx context.Context, code string) domain.Resolution {
	backoff := r.opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		result, err := r.lookupOnce(ctx, code)
		if err == nil {
			if c, ok := usable(result); ok {
				r.metrics.GeocodeRequests.WithLabelValues("success").Inc()
				r.logger.Debug("geocode resolved", "zip", code, "lat", c.Lat, "lon", c.Lon, "attempts", attempt+1)
				return domain.Resolved(c)
			}
			err = domain.ErrMalformedResponse
		}

		if attempt >= r.opts.Retries || !retryable(err) || ctx.Err() != nil {
			r.recordFailure(code, err, attempt+1)
			return domain.Unresolved()
		}

		r.metrics.GeocodeRetries.Inc()
		r.logger.Debug("geocode retrying", "zip", code, "kind", domain.FailureKind(err), "backoff", backoff, "error", err)
		if !r.sleep(ctx, backoff) {
			r.recordFailure(code, ctx.Err(), attempt+1)
			return domain.Unresolved()
		}
		backoff = retry.NextBackoff(backoff, maxRetryBackoff)
	}
}

func (r *Resolver) lookupOnce(ctx context.Context, code string) (domain.GeocodingResult, error) {
	// The per-attempt deadline covers the request only, not the rate limit wait.
	if r.opts.Limiter != nil {
		if err := r.opts.Limiter.Wait(ctx); err != nil {
			return domain.GeocodingResult{}, err
		}
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	start := r.opts.Clock.Now()
	result, err := r.geocoder.Lookup(ctx, code)
	r.metrics.GeocodeAPIDuration.Observe(r.opts.Clock.Since(start).Seconds())
	return result, err
}

func (r *Resolver) recordFailure(code string, err error, attempts int) {
	kind := domain.FailureKind(err)
	outcome := "error"
	if kind == "no_match" {
		outcome = "no_match"
	}
	r.metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	r.logger.Warn("geocode failed, zip unresolved",
		"zip", code,
		"kind", kind,
		"attempts", attempts,
		"error", err,
	)
}

func (r *Resolver) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := r.opts.Clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// usable rejects the all-zero coordinate some providers return for "nothing"
// and anything outside WGS-84 bounds.
func usable(r domain.GeocodingResult) (domain.Coordinate, bool) {
	if r.Lat == 0 && r.Lon == 0 {
		return domain.Coordinate{}, false
	}
	if r.Lat < -90 || r.Lat > 90 || r.Lon < -180 || r.Lon > 180 {
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Lat: r.Lat, Lon: r.Lon}, true
}

func retryable(err error) bool {
	var svcErr *domain.ServiceError
	switch {
	case errors.Is(err, domain.ErrNoMatch), errors.Is(err, domain.ErrMalformedResponse):
		return false
	case errors.As(err, &svcErr):
		return svcErr.Retryable()
	default:
		return true
	}
}
