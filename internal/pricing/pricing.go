// Package pricing derives per-line prices from a catalog price and a
// membership discount rate. Everything here is pure: prices are captured at
// order-placement time and never recomputed from live catalog data.
package pricing

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// UnitPrice is the discounted per-unit price: price × (1 − discountRate).
// The exact value is kept; rounding happens once, at the line level.
func UnitPrice(price, discountRate decimal.Decimal) decimal.Decimal {
	return price.Mul(one.Sub(discountRate))
}

// LineTotal is the currency-rounded total for quantity units:
// round(price × (1 − discountRate) × quantity, 2), half-up.
func LineTotal(price, discountRate decimal.Decimal, quantity int) decimal.Decimal {
	return UnitPrice(price, discountRate).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2)
}
