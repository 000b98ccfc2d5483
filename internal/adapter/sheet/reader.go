// Package sheet reads order tables from Excel workbooks and CSV files.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/order-geomap/internal/domain"
)

// Format identifies an input file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat is returned for file types other than xlsx and csv.
var ErrUnsupportedFormat = errors.New("unsupported file format: want .xlsx or .csv")

// FormatFromName picks the format from a file name's extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%q: %w", name, ErrUnsupportedFormat)
	}
}

// ReadFile opens path and reads its order rows.
func ReadFile(path string) ([]domain.RawRow, error) {
	format, err := FormatFromName(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open order sheet: %w", err)
	}
	defer f.Close()
	return Read(f, format)
}

// Read parses an order table. The first row must be a header containing every
// domain.RequiredColumns entry; extra columns are ignored. A missing column
// yields *domain.SchemaError, an unparseable cell *domain.RowError.
func Read(r io.Reader, format Format) ([]domain.RawRow, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatXLSX:
		records, err = readXLSX(r)
	case FormatCSV:
		records, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	return parseRecords(records)
}

// readXLSX returns the cell values of the workbook's first sheet.
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	// Raw values keep number formats ("#,##0.00", currency) out of the cells.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return records, nil
}

func parseRecords(records [][]string) ([]domain.RawRow, error) {
	if len(records) == 0 {
		return nil, domain.CheckColumns(nil)
	}

	header := records[0]
	if err := domain.CheckColumns(header); err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	rows := make([]domain.RawRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		line := i + 2
		cell := func(col string) string {
			if j := idx[col]; j < len(rec) {
				return rec[j]
			}
			return ""
		}

		total, err := parseTotal(cell(domain.ColTotal))
		if err != nil {
			return nil, &domain.RowError{Line: line, Column: domain.ColTotal, Value: cell(domain.ColTotal), Err: err}
		}
		qty, err := parseQuantity(cell(domain.ColQuantities))
		if err != nil {
			return nil, &domain.RowError{Line: line, Column: domain.ColQuantities, Value: cell(domain.ColQuantities), Err: err}
		}

		rows = append(rows, domain.RawRow{
			OrderID:          cell(domain.ColOrderID),
			Total:            total,
			Quantity:         qty,
			ProductName:      cell(domain.ColProductName),
			CustomerName:     cell(domain.ColName),
			ShippingZip:      cell(domain.ColShippingZip),
			ShippingProvince: cell(domain.ColShippingProvince),
			Line:             line,
		})
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// excelPrecision is the number of significant digits a spreadsheet keeps.
// Stored doubles such as 0.30000000000000004 are rounded back to it.
const excelPrecision = 15

func parseTotal(v string) (decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if n := d.NumDigits(); n > excelPrecision {
		d = d.Round(-d.Exponent() - int32(n-excelPrecision))
	}
	return d, nil
}

// parseQuantity accepts whole numbers written as integers or with a zero
// fraction ("3.0"), as spreadsheet exports often do.
func parseQuantity(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("quantity %s is not a whole number", d)
	}
	return int(d.IntPart()), nil
}
