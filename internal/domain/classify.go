package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DefaultRadiusMeters is the matching radius used when a reference point does
// not set its own.
const DefaultRadiusMeters = 80000

// DistanceMeters is the great-circle (haversine) distance between a and b.
// Every proximity comparison in a run goes through this function.
func DistanceMeters(a, b Coordinate) float64 {
	return geo.DistanceHaversine(a.point(), b.point())
}

// orb points are [lon, lat].
func (c Coordinate) point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// Classify labels each order as near or far. An order matches a reference
// point when its distance is within that point's RadiusMeters (inclusive);
// it is near when it matches at least one. All matching labels are kept, in
// the order the reference points were given.
func Classify(orders []AggregatedOrder, refs []ReferencePoint) []ClassifiedOrder {
	out := make([]ClassifiedOrder, 0, len(orders))
	for _, o := range orders {
		c := ClassifiedOrder{
			AggregatedOrder: o,
			MatchingLabels:  []string{},
		}
		nearest := math.Inf(1)
		for _, ref := range refs {
			d := DistanceMeters(o.Coordinate, ref.Coordinate)
			if d <= ref.RadiusMeters {
				c.MatchingLabels = append(c.MatchingLabels, ref.Label)
			}
			if d < nearest {
				nearest = d
				c.NearestLabel = ref.Label
				c.NearestMeters = d
			}
		}
		c.Near = len(c.MatchingLabels) > 0
		out = append(out, c)
	}
	return out
}
