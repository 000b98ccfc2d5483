package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Geocoding providers.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
)

const maxGeocodeWorkers = 16

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	// Geocoding configuration.
	GeocoderProvider    string
	NominatimURL        string
	NominatimUserAgent  string
	GeocodeCountryCodes string
	MapboxToken         string
	GeocodeTimeout      time.Duration
	GeocodeCacheSize    int
	GeocodeWorkers      int
	GeocodeRetries      int
	GeocodeRetryBackoff time.Duration
	GeocodeRateLimit    float64 // provider requests per second; 0 disables limiting

	// Proximity configuration.
	ReferencePointsFile   string
	ReferenceRadiusMeters float64

	// Optional Kafka sink; disabled when KafkaBrokers is empty.
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// KafkaEnabled reports whether classified orders should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocodeTimeout, err := parsePositiveDuration("GEOCODE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	retryBackoff, err := parseDuration("GEOCODE_RETRY_BACKOFF", "500ms")
	if err != nil {
		return nil, err
	}

	workers, err := parseInt("GEOCODE_WORKERS", 1)
	if err != nil {
		return nil, err
	}
	if workers < 1 || workers > maxGeocodeWorkers {
		return nil, fmt.Errorf("invalid GEOCODE_WORKERS: must be between 1 and %d", maxGeocodeWorkers)
	}

	retries, err := parseInt("GEOCODE_RETRIES", 1)
	if err != nil {
		return nil, err
	}
	if retries < 0 {
		return nil, errors.New("invalid GEOCODE_RETRIES: must not be negative")
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEOCODE_RATE_LIMIT", "1"), 64)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid GEOCODE_RATE_LIMIT: must be a non-negative number")
	}

	radius, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("REFERENCE_RADIUS_METERS", "80000"), 64)
	if err != nil || radius <= 0 {
		return nil, errors.New("invalid REFERENCE_RADIUS_METERS")
	}

	maxUpload, err := strconv.ParseInt(sharedcfg.EnvOrDefault("MAX_UPLOAD_BYTES", "20971520"), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, errors.New("invalid MAX_UPLOAD_BYTES")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MaxUploadBytes:  maxUpload,

		GeocoderProvider:    strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderNominatim)),
		NominatimURL:        sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent:  sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "order-geomap/1.0"),
		GeocodeCountryCodes: os.Getenv("GEOCODE_COUNTRY_CODES"),
		MapboxToken:         os.Getenv("MAPBOX_TOKEN"),
		GeocodeTimeout:      geocodeTimeout,
		GeocodeCacheSize:    parseCacheSize(),
		GeocodeWorkers:      workers,
		GeocodeRetries:      retries,
		GeocodeRetryBackoff: retryBackoff,
		GeocodeRateLimit:    rateLimit,

		ReferencePointsFile:   os.Getenv("REFERENCE_POINTS_FILE"),
		ReferenceRadiusMeters: radius,

		KafkaBrokers:   sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "classified-orders"),
	}

	switch cfg.GeocoderProvider {
	case ProviderNominatim:
		if cfg.NominatimUserAgent == "" {
			return nil, errors.New("NOMINATIM_USER_AGENT is required by the Nominatim usage policy")
		}
	case ProviderMapbox:
		if cfg.MapboxToken == "" {
			return nil, errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return nil, fmt.Errorf("invalid GEOCODER_PROVIDER %q: want %s or %s", cfg.GeocoderProvider, ProviderNominatim, ProviderMapbox)
	}
	if cfg.KafkaEnabled() && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parseCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 10000
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
