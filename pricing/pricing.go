// Package pricing holds the storefront's money arithmetic: cart totals and
// invoice line subtotals. All amounts are fixed-point decimals; rounding to
// two places happens only for display.
package pricing

import (
	"github.com/shopspring/decimal"

	"musa/models"
)

// DisplayPlaces is the number of decimal places shown to customers.
const DisplayPlaces = 2

// CartTotal returns the sum of price x quantity over all lines.
func CartTotal(lines []models.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// Round rounds an amount to display precision, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(DisplayPlaces)
}

// Format renders an amount with exactly two decimal places.
func Format(d decimal.Decimal) string {
	return d.StringFixed(DisplayPlaces)
}
