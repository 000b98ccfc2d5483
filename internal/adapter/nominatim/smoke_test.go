//go:build nominatim

package nominatim

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the public Nominatim instance. Keep them rare; the usage
// policy allows one request per second.
// Run with: go test -tags=nominatim ./internal/adapter/nominatim/ -v -count=1

func TestSmoke_Lookup(t *testing.T) {
	c := NewClient(DefaultBaseURL, "order-geomap-smoke/1.0", "gb", 10*time.Second, slog.Default())

	result, err := c.Lookup(context.Background(), "SW1A 1AA")
	require.NoError(t, err)

	assert.InDelta(t, 51.50, result.Lat, 0.05)
	assert.InDelta(t, -0.14, result.Lon, 0.05)
	assert.NotEmpty(t, result.DisplayName)
}
