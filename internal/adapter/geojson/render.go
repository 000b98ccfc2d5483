// Package geojson renders a pipeline result as a GeoJSON FeatureCollection
// that any web map can draw without knowing the pipeline's types.
package geojson

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	orbjson "github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/order-geomap/internal/domain"
)

// Marker colors for order features.
const (
	MarkerNear = "red"
	MarkerFar  = "blue"
)

// Feature kinds, exposed as the "kind" property.
const (
	KindOrder     = "order"
	KindReference = "reference"
	KindCenter    = "center"
)

// Render builds the feature collection for result: one point per order, one
// per reference point, and the view center. The center is left out when the
// result has neither orders nor references, since it would only be a
// placeholder. Run metadata is carried as foreign members.
func Render(result domain.PipelineResult) *orbjson.FeatureCollection {
	fc := orbjson.NewFeatureCollection()
	var points orb.MultiPoint

	for i := range result.Orders {
		o := &result.Orders[i]
		f := orbjson.NewFeature(point(o.Coordinate))
		f.ID = o.OrderID
		f.Properties["kind"] = KindOrder
		f.Properties["order_id"] = o.OrderID
		f.Properties["total"] = o.Total.InexactFloat64()
		f.Properties["quantity"] = o.Quantity
		f.Properties["product_names"] = o.ProductNames
		f.Properties["customer_name"] = o.CustomerName
		f.Properties["shipping_zip"] = o.ShippingZip
		f.Properties["shipping_province"] = o.ShippingProvince
		f.Properties["near"] = o.Near
		f.Properties["matching_labels"] = labels(o.MatchingLabels)
		f.Properties["marker_color"] = markerColor(o.Near)
		fc.Append(f)
		points = append(points, point(o.Coordinate))
	}

	for _, r := range result.ReferencePoints {
		f := orbjson.NewFeature(point(r.Coordinate))
		f.Properties["kind"] = KindReference
		f.Properties["label"] = r.Label
		f.Properties["radius_meters"] = r.RadiusMeters
		if r.DisplayRadiusMeters > 0 {
			f.Properties["display_radius_meters"] = r.DisplayRadiusMeters
		}
		fc.Append(f)
		points = append(points, point(r.Coordinate))
	}

	if len(points) > 0 {
		c := orbjson.NewFeature(point(result.Center))
		c.Properties["kind"] = KindCenter
		c.Properties["has_center"] = result.HasCenter
		fc.Append(c)
		fc.BBox = orbjson.NewBBox(points.Bound())
	}

	fc.ExtraMembers = orbjson.Properties{
		"run_id":       result.RunID,
		"generated_at": result.GeneratedAt.Format(time.RFC3339Nano),
		"stats":        result.Stats,
	}
	return fc
}

// Marshal renders result and encodes it as JSON.
func Marshal(result domain.PipelineResult) ([]byte, error) {
	data, err := json.Marshal(Render(result))
	if err != nil {
		return nil, fmt.Errorf("marshal feature collection: %w", err)
	}
	return data, nil
}

func point(c domain.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func markerColor(near bool) string {
	if near {
		return MarkerNear
	}
	return MarkerFar
}

// labels keeps "matching_labels" an array even for far orders.
func labels(l []string) []string {
	if l == nil {
		return []string{}
	}
	return l
}
