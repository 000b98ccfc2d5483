// Package nominatim resolves postal codes through an OpenStreetMap Nominatim
// search endpoint.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/order-geomap/internal/domain"
)

// DefaultBaseURL is the public OpenStreetMap instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client implements domain.Geocoder against the Nominatim /search API.
type Client struct {
	baseURL      string
	userAgent    string
	countryCodes string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a Nominatim client. The public instance rejects requests
// without an identifying User-Agent. countryCodes is passed through as the
// countrycodes filter when non-empty.
func NewClient(baseURL, userAgent, countryCodes string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:      baseURL,
		userAgent:    userAgent,
		countryCodes: countryCodes,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// Lookup runs a free-form search for query and returns the best match.
func (c *Client) Lookup(ctx context.Context, query string) (domain.GeocodingResult, error) {
	params := url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("nominatim search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeocodingResult{}, &domain.ServiceError{Provider: "nominatim", Status: resp.StatusCode, Body: string(body)}
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %v: %w", err, domain.ErrMalformedResponse)
	}
	if len(places) == 0 {
		return domain.GeocodingResult{}, domain.ErrNoMatch
	}

	return places[0].result()
}

// Nominatim encodes coordinates as decimal strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Type        string `json:"type"`
}

func (p place) result() (domain.GeocodingResult, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lat %q: %w", p.Lat, domain.ErrMalformedResponse)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lon %q: %w", p.Lon, domain.ErrMalformedResponse)
	}
	return domain.GeocodingResult{Lat: lat, Lon: lon, DisplayName: p.DisplayName}, nil
}
