// Command validate checks a map result written by ordermap against the
// invariants every result must satisfy: unique orders, correct proximity
// flags, a center that is the mean of the orders, and consistent stats. Given
// the source sheet it also verifies the per-order sums.
//
// Usage:
//
//	go run ./cmd/validate -result map.json -sheet orders.xlsx
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/couchcryptid/order-geomap/internal/adapter/sheet"
	"github.com/couchcryptid/order-geomap/internal/domain"
)

const coordEpsilon = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	resultPath := flag.String("result", "", "path to a JSON result written by ordermap")
	sheetPath := flag.String("sheet", "", "optional source order sheet (.xlsx or .csv)")
	flag.Parse()

	if *resultPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*resultPath, *sheetPath))
}

func run(resultPath, sheetPath string) int {
	fmt.Println("=== Order Map Result Validation ===")
	fmt.Println()

	data, err := os.ReadFile(resultPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read result: %v\n", err)
		return 1
	}
	var result domain.PipelineResult
	if err := json.Unmarshal(data, &result); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode result: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateStructure(result),
		validateClassification(result),
		validateCenter(result),
		validateStats(result),
	}

	if sheetPath != "" {
		rows, err := sheet.ReadFile(sheetPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: read sheet: %v\n", err)
			return 1
		}
		phases = append(phases, validateAggregation(result, rows))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Run %s: %d orders (%d near), %d reference points\n",
		result.RunID, len(result.Orders), result.Stats.NearOrders, len(result.ReferencePoints))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Structure ──

func validateStructure(r domain.PipelineResult) *phase {
	p := &phase{name: "Phase 1: Structure"}

	if r.RunID == "" {
		p.errorf("missing run_id")
	}
	if r.GeneratedAt.IsZero() {
		p.errorf("missing generated_at")
	}
	if r.Orders == nil {
		p.errorf("orders must be an array, got null")
	}

	seen := make(map[string]bool, len(r.Orders))
	for i := range r.Orders {
		o := &r.Orders[i]
		if seen[o.OrderID] {
			p.errorf("order %q appears more than once", o.OrderID)
		}
		seen[o.OrderID] = true
		if o.LineCount < 1 {
			p.errorf("order %q: line_count %d", o.OrderID, o.LineCount)
		}
		if c := o.Coordinate; c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
			p.errorf("order %q: coordinate out of range: %v", o.OrderID, o.Coordinate)
		}
	}
	return p
}

// ── Phase 2: Classification ──
// Recomputes every order's distances and compares the stored flags.

func validateClassification(r domain.PipelineResult) *phase {
	p := &phase{name: "Phase 2: Proximity Classification"}

	for i := range r.Orders {
		o := &r.Orders[i]
		var want []string
		for _, ref := range r.ReferencePoints {
			if domain.DistanceMeters(o.Coordinate, ref.Coordinate) <= ref.RadiusMeters {
				want = append(want, ref.Label)
			}
		}
		if o.Near != (len(want) > 0) {
			p.errorf("order %q: near=%t but %d references within radius", o.OrderID, o.Near, len(want))
		}
		if !slices.Equal(o.MatchingLabels, want) {
			p.errorf("order %q: matching_labels=%v, expected %v", o.OrderID, o.MatchingLabels, want)
		}
	}
	return p
}

// ── Phase 3: Center ──

func validateCenter(r domain.PipelineResult) *phase {
	p := &phase{name: "Phase 3: View Center"}

	if len(r.Orders) == 0 {
		if r.HasCenter {
			p.errorf("has_center is true for an empty result")
		}
		return p
	}
	if !r.HasCenter {
		p.errorf("has_center is false with %d orders", len(r.Orders))
	}

	var lat, lon float64
	for i := range r.Orders {
		lat += r.Orders[i].Coordinate.Lat
		lon += r.Orders[i].Coordinate.Lon
	}
	n := float64(len(r.Orders))
	if math.Abs(r.Center.Lat-lat/n) > coordEpsilon || math.Abs(r.Center.Lon-lon/n) > coordEpsilon {
		p.errorf("center %v is not the mean of the order coordinates (%f, %f)", r.Center, lat/n, lon/n)
	}
	return p
}

// ── Phase 4: Stats ──

func validateStats(r domain.PipelineResult) *phase {
	p := &phase{name: "Phase 4: Stats"}
	s := r.Stats

	if s.Orders != len(r.Orders) {
		p.errorf("stats.orders=%d, result has %d", s.Orders, len(r.Orders))
	}
	near := 0
	lines := 0
	for i := range r.Orders {
		if r.Orders[i].Near {
			near++
		}
		lines += r.Orders[i].LineCount
	}
	if s.NearOrders != near {
		p.errorf("stats.near_orders=%d, result has %d", s.NearOrders, near)
	}
	if s.ResolvedRows+s.DroppedRows != s.InputRows {
		p.errorf("resolved_rows (%d) + dropped_rows (%d) != input_rows (%d)", s.ResolvedRows, s.DroppedRows, s.InputRows)
	}
	if lines != s.ResolvedRows {
		p.errorf("order line counts sum to %d, stats.resolved_rows=%d", lines, s.ResolvedRows)
	}
	if s.ResolvedRows > s.InputRows {
		p.errorf("more rows resolved (%d) than were input (%d)", s.ResolvedRows, s.InputRows)
	}
	return p
}

// ── Phase 5: Aggregation ──
// Orders whose every sheet line survived must carry the exact sums.

func validateAggregation(r domain.PipelineResult, rows []domain.RawRow) *phase {
	p := &phase{name: "Phase 5: Aggregation (result vs sheet)"}

	type sums struct {
		total    decimal.Decimal
		quantity int
		products []string
		lines    int
	}
	bySheet := map[string]*sums{}
	for _, row := range rows {
		s, ok := bySheet[row.OrderID]
		if !ok {
			s = &sums{}
			bySheet[row.OrderID] = s
		}
		s.total = s.total.Add(row.Total)
		s.quantity += row.Quantity
		s.products = append(s.products, row.ProductName)
		s.lines++
	}

	if len(rows) != r.Stats.InputRows {
		p.errorf("sheet has %d rows, stats.input_rows=%d", len(rows), r.Stats.InputRows)
	}

	for i := range r.Orders {
		o := &r.Orders[i]
		s, ok := bySheet[o.OrderID]
		if !ok {
			p.errorf("order %q not present in sheet", o.OrderID)
			continue
		}
		if o.LineCount > s.lines {
			p.errorf("order %q: line_count %d exceeds %d sheet rows", o.OrderID, o.LineCount, s.lines)
			continue
		}
		if o.LineCount != s.lines {
			continue
		}
		if !o.Total.Equal(s.total) {
			p.errorf("order %q: total %s, sheet sums to %s", o.OrderID, o.Total, s.total)
		}
		if o.Quantity != s.quantity {
			p.errorf("order %q: quantity %d, sheet sums to %d", o.OrderID, o.Quantity, s.quantity)
		}
		if want := strings.Join(s.products, domain.ProductSeparator); o.ProductNames != want {
			p.errorf("order %q: product_names %q, expected %q", o.OrderID, o.ProductNames, want)
		}
	}
	return p
}
