// Command genmock writes a reproducible sample order sheet for local runs and
// demos. Orders span several product lines, cluster around the reference
// depots, and include a share of postal codes no provider will resolve.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/orders.xlsx -orders 60 -seed 7
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/couchcryptid/order-geomap/internal/adapter/sheet"
	"github.com/couchcryptid/order-geomap/internal/domain"
)

type postcode struct {
	zip      string
	province string
}

// Real postcodes: the first group falls inside the default 80 km radii, the
// second does not.
var (
	nearCodes = []postcode{
		{"SW1A 1AA", "England"}, {"UB8 2DB", "England"}, {"HP10 9QY", "England"},
		{"M1 1AE", "England"}, {"OL10 2TA", "England"}, {"WA1 1UH", "England"},
		{"B1 1AA", "England"}, {"CV1 1GF", "England"}, {"B38 8SE", "England"},
	}
	farCodes = []postcode{
		{"EH1 1YZ", "Scotland"}, {"G1 1XQ", "Scotland"}, {"PL1 1EA", "England"},
		{"NE1 7RU", "England"}, {"CF10 1EP", "Wales"},
	}
	invalidCodes = []postcode{{"ZZ99 9ZZ", "Unknown"}, {"N/A", ""}, {"", ""}}

	products  = []string{"Widget", "Gadget", "Gizmo", "Sprocket", "Flange", "Bracket", "Coupling"}
	customers = []string{"Ada Lovelace", "Alan Turing", "Grace Hopper", "Tim Berners-Lee", "Karen Sparck Jones", "Tommy Flowers"}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock/orders.xlsx", "output path (.xlsx or .csv)")
	orders := flag.Int("orders", 50, "number of orders to generate")
	seed := flag.Uint64("seed", 42, "random seed")
	invalidShare := flag.Float64("invalid", 0.1, "share of orders shipped to unresolvable postal codes")
	flag.Parse()

	if *orders <= 0 || *invalidShare < 0 || *invalidShare > 1 {
		flag.Usage()
		return fmt.Errorf("-orders must be positive and -invalid within [0,1]")
	}

	format, err := sheet.FormatFromName(*out)
	if err != nil {
		return err
	}

	rows := generate(rand.New(rand.NewPCG(*seed, *seed)), *orders, *invalidShare)

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	switch format {
	case sheet.FormatXLSX:
		err = sheet.WriteXLSX(f, rows)
	default:
		err = writeCSV(f, rows)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}

	log.Printf("wrote %d rows for %d orders to %s", len(rows), *orders, *out)
	return nil
}

func generate(rng *rand.Rand, orders int, invalidShare float64) []domain.RawRow {
	var rows []domain.RawRow
	for i := 0; i < orders; i++ {
		id := strconv.Itoa(1000 + i)
		customer := customers[rng.IntN(len(customers))]

		var pc postcode
		switch r := rng.Float64(); {
		case r < invalidShare:
			pc = invalidCodes[rng.IntN(len(invalidCodes))]
		case r < invalidShare+(1-invalidShare)*0.7:
			pc = nearCodes[rng.IntN(len(nearCodes))]
		default:
			pc = farCodes[rng.IntN(len(farCodes))]
		}

		lines := 1 + rng.IntN(3)
		for l := 0; l < lines; l++ {
			rows = append(rows, domain.RawRow{
				OrderID:          id,
				Total:            decimal.New(int64(199+rng.IntN(9800)), -2),
				Quantity:         1 + rng.IntN(5),
				ProductName:      products[rng.IntN(len(products))],
				CustomerName:     customer,
				ShippingZip:      pc.zip,
				ShippingProvince: pc.province,
			})
		}
	}

	// Shuffle lines so orders are not contiguous, as in real exports.
	rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	return rows
}

func writeCSV(f *os.File, rows []domain.RawRow) error {
	w := csv.NewWriter(f)
	if err := w.Write(domain.RequiredColumns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.OrderID, r.Total.StringFixed(2), strconv.Itoa(r.Quantity), r.ProductName,
			r.CustomerName, r.ShippingZip, strings.TrimSpace(r.ShippingProvince),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
