// Package app assembles the pipeline from configuration. Both the CLI and the
// HTTP service build their pipeline here so they geocode and classify alike.
package app

import (
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/order-geomap/internal/adapter/mapbox"
	"github.com/couchcryptid/order-geomap/internal/adapter/nominatim"
	"github.com/couchcryptid/order-geomap/internal/config"
	"github.com/couchcryptid/order-geomap/internal/domain"
	"github.com/couchcryptid/order-geomap/internal/geocode"
	"github.com/couchcryptid/order-geomap/internal/observability"
	"github.com/couchcryptid/order-geomap/internal/pipeline"
)

// NewGeocoder returns the provider selected by GEOCODER_PROVIDER.
func NewGeocoder(cfg *config.Config, logger *slog.Logger) (domain.Geocoder, error) {
	switch cfg.GeocoderProvider {
	case config.ProviderNominatim:
		return nominatim.NewClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.GeocodeCountryCodes, cfg.GeocodeTimeout, logger), nil
	case config.ProviderMapbox:
		return mapbox.NewClient(cfg.MapboxToken, cfg.GeocodeCountryCodes, cfg.GeocodeTimeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown geocoder provider %q", cfg.GeocoderProvider)
	}
}

// NewResolver wraps g with the configured cache, retries, and rate limit.
func NewResolver(cfg *config.Config, g domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *geocode.Resolver {
	opts := geocode.Options{
		Timeout:      cfg.GeocodeTimeout,
		Retries:      cfg.GeocodeRetries,
		RetryBackoff: cfg.GeocodeRetryBackoff,
	}
	if cfg.GeocodeRateLimit > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.GeocodeRateLimit), 1)
	}
	return geocode.NewResolver(g, geocode.NewCache(cfg.GeocodeCacheSize), opts, logger, metrics)
}

// NewPipeline builds the full pipeline. sink may be nil.
func NewPipeline(cfg *config.Config, sink pipeline.Sink, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Pipeline, error) {
	refs, err := cfg.LoadReferencePoints()
	if err != nil {
		return nil, err
	}

	g, err := NewGeocoder(cfg, logger)
	if err != nil {
		return nil, err
	}
	resolver := NewResolver(cfg, g, logger, metrics)
	annotator := pipeline.NewAnnotator(resolver, cfg.GeocodeWorkers, logger)

	logger.Info("pipeline configured",
		"provider", cfg.GeocoderProvider,
		"workers", cfg.GeocodeWorkers,
		"cache_size", cfg.GeocodeCacheSize,
		"rate_limit", cfg.GeocodeRateLimit,
		"reference_points", len(refs),
	)
	return pipeline.New(annotator, refs, sink, logger, metrics), nil
}
