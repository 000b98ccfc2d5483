package domain

import (
	"fmt"
	"strings"
)

// Sheet column headers an uploaded order table must carry.
const (
	ColOrderID          = "Order ID"
	ColTotal            = "Total"
	ColQuantities       = "Quantities"
	ColProductName      = "Product name"
	ColName             = "Name"
	ColShippingZip      = "Shipping Zip"
	ColShippingProvince = "Shipping Province"
)

// RequiredColumns lists the headers in the order they are reported to users.
var RequiredColumns = []string{
	ColOrderID,
	ColTotal,
	ColQuantities,
	ColProductName,
	ColName,
	ColShippingZip,
	ColShippingProvince,
}

// SchemaError means the input table lacks required columns. The whole run is
// refused when this is returned.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("the dataset must contain the following columns: %s (missing: %s)",
		strings.Join(RequiredColumns, ", "), strings.Join(e.Missing, ", "))
}

// CheckColumns returns a *SchemaError naming every required column absent
// from header. Header names must match exactly.
func CheckColumns(header []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

// RowError reports a cell that could not be parsed into its field type.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: column %q: invalid value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
