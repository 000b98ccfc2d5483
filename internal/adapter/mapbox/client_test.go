package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/order-geomap/internal/domain"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Lookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/SW1A 1AA.json", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "postcode", r.URL.Query().Get("types"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{-0.141588, 51.501009},
					PlaceName: "SW1A 1AA, London, England, United Kingdom",
					Text:      "SW1A 1AA",
					Relevance: 1,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	result, err := c.Lookup(context.Background(), "SW1A 1AA")
	require.NoError(t, err)

	assert.Equal(t, 51.501009, result.Lat)
	assert.Equal(t, -0.141588, result.Lon)
	assert.Equal(t, "SW1A 1AA, London, England, United Kingdom", result.DisplayName)
}

func TestClient_Lookup_Country(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gb", r.URL.Query().Get("country"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"features":[{"center":[-2.23,53.47]}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	c.country = "gb"
	_, err := c.Lookup(context.Background(), "M1 1AE")
	require.NoError(t, err)
}

func TestClient_Lookup_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.Lookup(context.Background(), "NONEXISTENT")
	require.ErrorIs(t, err, domain.ErrNoMatch)
}

func TestClient_Lookup_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.Lookup(context.Background(), "SW1A 1AA")

	var svcErr *domain.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusUnauthorized, svcErr.Status)
	assert.Contains(t, err.Error(), "401")
	assert.False(t, svcErr.Retryable())
}

func TestClient_Lookup_MalformedBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json":   `<html>`,
		"bad center": `{"features":[{"center":[1]}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := testClient(srv.URL, 5*time.Second)
			_, err := c.Lookup(context.Background(), "SW1A 1AA")
			require.ErrorIs(t, err, domain.ErrMalformedResponse)
		})
	}
}

func TestClient_Lookup_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 50*time.Millisecond)
	_, err := c.Lookup(context.Background(), "SW1A 1AA")
	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
}
