package nominatim

import (
	"context"
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

const testUserAgent = "order-geomap-test/1.0"

func testClient(baseURL string) *Client {
	return NewClient(baseURL, testUserAgent, "", 2*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Lookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "SW1A 1AA", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("countrycodes"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"51.5010091","lon":"-0.1415876","display_name":"SW1A 1AA, London","category":"place","type":"postcode"}]`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).Lookup(context.Background(), "SW1A 1AA")
	require.NoError(t, err)

	assert.InDelta(t, 51.5010091, result.Lat, 1e-9)
	assert.InDelta(t, -0.1415876, result.Lon, 1e-9)
	assert.Equal(t, "SW1A 1AA, London", result.DisplayName)
}

func TestClient_Lookup_CountryCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gb,ie", r.URL.Query().Get("countrycodes"))
		_, _ = w.Write([]byte(`[{"lat":"53.47","lon":"-2.23"}]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.countryCodes = "gb,ie"
	_, err := c.Lookup(context.Background(), "M1 1AE")
	require.NoError(t, err)
}

func TestClient_Lookup_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Lookup(context.Background(), "ZZ99 9ZZ")
	require.ErrorIs(t, err, domain.ErrNoMatch)
	assert.Equal(t, "no_match", domain.FailureKind(err))
}

func TestClient_Lookup_StatusError(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("go away"))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).Lookup(context.Background(), "SW1A 1AA")

			var svcErr *domain.ServiceError
			require.ErrorAs(t, err, &svcErr)
			assert.Equal(t, "nominatim", svcErr.Provider)
			assert.Equal(t, tt.status, svcErr.Status)
			assert.Equal(t, "go away", svcErr.Body)
			assert.Equal(t, tt.retryable, svcErr.Retryable())
		})
	}
}

func TestClient_Lookup_Malformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json": `{"error":`,
		"object":   `{"lat":"1"}`,
		"bad lat":  `[{"lat":"north","lon":"1"}]`,
		"bad lon":  `[{"lat":"1","lon":""}]`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).Lookup(context.Background(), "SW1A 1AA")
			require.ErrorIs(t, err, domain.ErrMalformedResponse)
		})
	}
}

func TestClient_Lookup_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testUserAgent, "", 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.Lookup(context.Background(), "SW1A 1AA")
	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
	assert.Equal(t, "timeout", domain.FailureKind(err))
}

func TestClient_Lookup_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testClient(srv.URL).Lookup(ctx, "SW1A 1AA")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("", testUserAgent, "", time.Second, slog.Default())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
}
