package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Geocoder resolves a free-form query (here, a postal code) to coordinates.
// Implementations return one of the typed errors below so callers can tell a
// missing match apart from a broken service.
type Geocoder interface {
	Lookup(ctx context.Context, query string) (GeocodingResult, error)
}

var (
	// ErrNoMatch means the provider answered but found nothing for the query.
	ErrNoMatch = errors.New("geocode: no match")

	// ErrMalformedResponse means the provider answered with a body that could
	// not be decoded or carried unusable coordinates.
	ErrMalformedResponse = errors.New("geocode: malformed response")
)

// ServiceError is a non-200 answer from a geocoding provider.
type ServiceError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Status, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *ServiceError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// FailureKind labels a lookup error for logs and metrics.
func FailureKind(err error) string {
	var svcErr *ServiceError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case IsTimeout(err):
		return "timeout"
	case errors.As(err, &svcErr):
		return "status"
	default:
		return "transport"
	}
}

// IsTimeout reports whether err came from a deadline or client timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
