// Package pricing computes catalog special prices.
package pricing

import "github.com/shopspring/decimal"

// CentPlaces is the number of decimal places prices are kept at.
const CentPlaces = 2

var hundred = decimal.NewFromInt(100)

// SpecialPrice returns price x (1 - discount/100), rounded to cents.
//
// discount is a percentage and callers must keep it within [0, 100]; values
// outside that range are not rejected here.
func SpecialPrice(price, discount decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discount.Div(hundred))
	return price.Mul(factor).Round(CentPlaces)
}

// ValidDiscount reports whether discount is a percentage in [0, 100].
func ValidDiscount(discount decimal.Decimal) bool {
	return !discount.IsNegative() && discount.LessThanOrEqual(hundred)
}
