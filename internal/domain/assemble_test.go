package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_CenterIsMean(t *testing.T) {
	orders := Classify([]AggregatedOrder{
		orderAt("1", Coordinate{Lat: 50, Lon: -2}),
		orderAt("2", Coordinate{Lat: 52, Lon: 0}),
	}, testReferences())

	res := Assemble(orders, testReferences())

	assert.True(t, res.HasCenter)
	assert.InDelta(t, 51.0, res.Center.Lat, 1e-9)
	assert.InDelta(t, -1.0, res.Center.Lon, 1e-9)
	assert.Equal(t, 2, res.Stats.Orders)
	assert.Equal(t, testReferences(), res.ReferencePoints)
	assert.NotEmpty(t, res.RunID)
}

func TestAssemble_CountsNearOrders(t *testing.T) {
	orders := Classify([]AggregatedOrder{
		orderAt("1", london),
		orderAt("2", westmin),
		orderAt("3", edinburgh),
	}, testReferences())

	res := Assemble(orders, testReferences())

	assert.Equal(t, 3, res.Stats.Orders)
	assert.Equal(t, 2, res.Stats.NearOrders)
}

func TestAssemble_EmptyFallsBackToReferences(t *testing.T) {
	res := Assemble(nil, testReferences())

	assert.False(t, res.HasCenter)
	require.NotNil(t, res.Orders)
	assert.Empty(t, res.Orders)
	wantLat := (london.Lat + manchester.Lat + birmingham.Lat) / 3
	wantLon := (london.Lon + manchester.Lon + birmingham.Lon) / 3
	assert.InDelta(t, wantLat, res.Center.Lat, 1e-9)
	assert.InDelta(t, wantLon, res.Center.Lon, 1e-9)
}

func TestAssemble_EmptyWithoutReferences(t *testing.T) {
	res := Assemble(nil, nil)

	assert.False(t, res.HasCenter)
	assert.Equal(t, DefaultCenter, res.Center)
	assert.NotNil(t, res.ReferencePoints)
}

func TestAssemble_UsesClock(t *testing.T) {
	at := time.Date(2024, time.May, 1, 9, 30, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	defer SetClock(nil)

	res := Assemble(nil, nil)

	assert.Equal(t, at, res.GeneratedAt)
}
