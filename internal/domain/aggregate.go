package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ProductSeparator joins product names of one order.
const ProductSeparator = ", "

// Aggregate groups annotated rows by order ID and reduces each group to one
// AggregatedOrder. Output follows the first appearance of each order ID.
// Totals and quantities are summed, product names are joined in row order
// (duplicates kept), and every other field comes from the group's first row.
func Aggregate(rows []AnnotatedRow) []AggregatedOrder {
	index := make(map[string]int, len(rows))
	orders := make([]AggregatedOrder, 0, len(rows))
	products := make([][]string, 0, len(rows))

	for i := range rows {
		r := &rows[i]
		pos, seen := index[r.OrderID]
		if !seen {
			pos = len(orders)
			index[r.OrderID] = pos
			orders = append(orders, AggregatedOrder{
				OrderID:          r.OrderID,
				Total:            decimal.Zero,
				CustomerName:     r.CustomerName,
				ShippingZip:      r.ShippingZip,
				ShippingProvince: r.ShippingProvince,
				Coordinate:       r.Coordinate,
			})
			products = append(products, nil)
		}

		o := &orders[pos]
		o.Total = o.Total.Add(r.Total)
		o.Quantity += r.Quantity
		o.LineCount++
		products[pos] = append(products[pos], r.ProductName)
	}

	for i := range orders {
		orders[i].ProductNames = strings.Join(products[i], ProductSeparator)
	}
	return orders
}
