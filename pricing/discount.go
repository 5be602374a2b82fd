// Package pricing turns catalog prices and an optional coupon into the price
// recorded on each entitlement. It performs no I/O.
package pricing

import (
	"github.com/GuilhermeXavier08/mythic/models"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Discount is the part of a coupon the calculator needs.
type Discount struct {
	Kind      models.CouponKind
	Magnitude decimal.Decimal
}

// FromCoupon returns nil for a nil coupon.
func FromCoupon(c *models.Coupon) *Discount {
	if c == nil {
		return nil
	}
	return &Discount{Kind: c.Kind, Magnitude: c.Discount}
}

// Quote holds the per-line prices in the same order as the input.
//
// Total is the sum of the rounded lines and may differ by a cent from
// Subtotal*Multiplier; the difference is not redistributed.
type Quote struct {
	Lines      []decimal.Decimal
	Multiplier decimal.Decimal
	Subtotal   decimal.Decimal
	Total      decimal.Decimal
}

// Calculate prices every line with a single cart-wide multiplier.
//
// A FIXED discount is defined on the cart subtotal but entitlements are priced
// per game, so it is converted into the multiplier (subtotal-d)/subtotal first.
func Calculate(prices []decimal.Decimal, d *Discount) Quote {
	subtotal := decimal.Zero
	for _, p := range prices {
		subtotal = subtotal.Add(p)
	}

	multiplier := Multiplier(subtotal, d)

	lines := make([]decimal.Decimal, len(prices))
	total := decimal.Zero
	for i, p := range prices {
		lines[i] = Round2(p.Mul(multiplier))
		total = total.Add(lines[i])
	}

	return Quote{
		Lines:      lines,
		Multiplier: multiplier,
		Subtotal:   subtotal,
		Total:      total,
	}
}

// Multiplier returns the factor applied to every line for the given subtotal.
func Multiplier(subtotal decimal.Decimal, d *Discount) decimal.Decimal {
	if d == nil {
		return one
	}
	switch d.Kind {
	case models.CouponKindPercentage:
		return decimal.Max(decimal.Zero, one.Sub(d.Magnitude.Div(hundred)))
	case models.CouponKindFixed:
		if !subtotal.IsPositive() {
			return decimal.Zero
		}
		return decimal.Max(decimal.Zero, subtotal.Sub(d.Magnitude)).Div(subtotal)
	default:
		return one
	}
}

// Round2 rounds half-up to cents and never returns a negative amount.
func Round2(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v.Round(2)
}
