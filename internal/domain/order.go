package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one line of the uploaded order sheet. A single order usually spans
// several rows, one per product line.
type RawRow struct {
	OrderID          string          `json:"order_id"`
	Total            decimal.Decimal `json:"total"`
	Quantity         int             `json:"quantity"`
	ProductName      string          `json:"product_name"`
	CustomerName     string          `json:"customer_name"`
	ShippingZip      string          `json:"shipping_zip"`
	ShippingProvince string          `json:"shipping_province"`

	Line int `json:"-"` // 1-based sheet row, for logs and row errors
}

// Coordinate is a WGS-84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Resolution is the outcome of resolving a postal code: either a coordinate
// or the unresolved marker. The zero value is unresolved.
type Resolution struct {
	Coordinate Coordinate
	Resolved   bool
}

// Resolved wraps a coordinate as a successful resolution.
func Resolved(c Coordinate) Resolution {
	return Resolution{Coordinate: c, Resolved: true}
}

// Unresolved returns the marker for a code that could not be geocoded.
func Unresolved() Resolution {
	return Resolution{}
}

// AnnotatedRow is a RawRow whose shipping zip resolved to a coordinate.
type AnnotatedRow struct {
	RawRow
	Coordinate Coordinate
}

// ReferencePoint is a named location used for proximity classification.
// RadiusMeters is the matching radius; DisplayRadiusMeters only affects how a
// renderer draws the overlay and never changes classification.
type ReferencePoint struct {
	Label               string     `json:"label"`
	Coordinate          Coordinate `json:"coordinate"`
	RadiusMeters        float64    `json:"radius_meters"`
	DisplayRadiusMeters float64    `json:"display_radius_meters,omitempty"`
}

// AggregatedOrder collapses all rows of one order into a single record.
type AggregatedOrder struct {
	OrderID          string          `json:"order_id"`
	Total            decimal.Decimal `json:"total"`
	Quantity         int             `json:"quantity"`
	ProductNames     string          `json:"product_names"`
	CustomerName     string          `json:"customer_name"`
	ShippingZip      string          `json:"shipping_zip"`
	ShippingProvince string          `json:"shipping_province"`
	Coordinate       Coordinate      `json:"coordinate"`
	LineCount        int             `json:"line_count"`
}

// ClassifiedOrder is an AggregatedOrder annotated with its proximity to the
// reference points.
type ClassifiedOrder struct {
	AggregatedOrder
	Near           bool     `json:"near"`
	MatchingLabels []string `json:"matching_labels"`

	// Informational: closest reference point regardless of radius.
	NearestLabel  string  `json:"nearest_label,omitempty"`
	NearestMeters float64 `json:"nearest_meters,omitempty"`
}

// Stats summarizes how many rows survived each stage of a run.
type Stats struct {
	InputRows     int `json:"input_rows"`
	ResolvedRows  int `json:"resolved_rows"`
	DroppedRows   int `json:"dropped_rows"`
	DistinctCodes int `json:"distinct_codes"`
	Orders        int `json:"orders"`
	NearOrders    int `json:"near_orders"`
}

// PipelineResult is everything a renderer needs to draw the order map.
// HasCenter is false when there were no orders to average; Center then holds
// the fallback described on Assemble.
type PipelineResult struct {
	RunID           string            `json:"run_id"`
	GeneratedAt     time.Time         `json:"generated_at"`
	Orders          []ClassifiedOrder `json:"orders"`
	ReferencePoints []ReferencePoint  `json:"reference_points"`
	Center          Coordinate        `json:"center"`
	HasCenter       bool              `json:"has_center"`
	Stats           Stats             `json:"stats"`
}
