package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/order-geomap/internal/domain"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	country    string
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client. country optionally restricts
// matches to ISO 3166 alpha-2 codes, comma separated.
func NewClient(token, country string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		country: country,
		logger:  logger,
	}
}

// Lookup forward-geocodes a postal code to the center of its postcode area.
func (c *Client) Lookup(ctx context.Context, query string) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"postcode"},
	}
	if c.country != "" {
		params.Set("country", c.country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("mapbox geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeocodingResult{}, &domain.ServiceError{Provider: "mapbox", Status: resp.StatusCode, Body: string(body)}
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %v: %w", err, domain.ErrMalformedResponse)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.GeocodingResult{}, domain.ErrNoMatch
	}

	f := mapboxResp.Features[0]
	if len(f.Center) != 2 {
		return domain.GeocodingResult{}, fmt.Errorf("feature center has %d values: %w", len(f.Center), domain.ErrMalformedResponse)
	}
	c.logger.Debug("mapbox match", "query", query, "place", f.PlaceName, "relevance", f.Relevance)
	return domain.GeocodingResult{
		Lon:         f.Center[0],
		Lat:         f.Center[1],
		DisplayName: f.PlaceName,
	}, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
