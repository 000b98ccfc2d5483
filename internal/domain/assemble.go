package domain

import (
	"github.com/google/uuid"
)

// DefaultCenter is the view center used when there is nothing to average.
var DefaultCenter = Coordinate{}

// Assemble packages classified orders and the reference set for rendering.
//
// Center is the mean latitude and mean longitude of the orders. With no
// orders HasCenter is false and Center falls back to the mean of the
// reference points, or DefaultCenter when there are none either.
// References are passed through unchanged.
func Assemble(orders []ClassifiedOrder, refs []ReferencePoint) PipelineResult {
	if orders == nil {
		orders = []ClassifiedOrder{}
	}
	if refs == nil {
		refs = []ReferencePoint{}
	}

	res := PipelineResult{
		RunID:           uuid.NewString(),
		GeneratedAt:     clock.Now().UTC(),
		Orders:          orders,
		ReferencePoints: refs,
		Center:          DefaultCenter,
	}

	coords := make([]Coordinate, 0, len(orders))
	for i := range orders {
		coords = append(coords, orders[i].Coordinate)
		if orders[i].Near {
			res.Stats.NearOrders++
		}
	}
	res.Stats.Orders = len(orders)

	if c, ok := meanCoordinate(coords); ok {
		res.Center = c
		res.HasCenter = true
		return res
	}

	refCoords := make([]Coordinate, 0, len(refs))
	for _, r := range refs {
		refCoords = append(refCoords, r.Coordinate)
	}
	if c, ok := meanCoordinate(refCoords); ok {
		res.Center = c
	}
	return res
}

func meanCoordinate(coords []Coordinate) (Coordinate, bool) {
	if len(coords) == 0 {
		return Coordinate{}, false
	}
	var lat, lon float64
	for _, c := range coords {
		lat += c.Lat
		lon += c.Lon
	}
	n := float64(len(coords))
	return Coordinate{Lat: lat / n, Lon: lon / n}, true
}
