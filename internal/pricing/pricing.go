// Package pricing turns order lines into a monetary breakdown.
//
// Line totals and the subtotal are exact. Only tax and the final total are
// rounded, half away from zero to two decimals, so a breakdown is always
// reproducible from its lines.
package pricing

import (
	"github.com/shopspring/decimal"
)

const places = 2

// Policy holds the tunable constants of the calculation.
type Policy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
}

// DefaultPolicy is 10% tax and 10.00 shipping below a 50.00 subtotal.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.10"),
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
		FlatShipping:          decimal.RequireFromString("10.00"),
	}
}

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) Calculator {
	return Calculator{policy: policy}
}

// LineTotal is unit price times quantity with no rounding.
func (c Calculator) LineTotal(l Line) decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (c Calculator) Calculate(lines []Line) Breakdown {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(c.LineTotal(l))
	}

	tax := subtotal.Mul(c.policy.TaxRate).Round(places)

	shipping := c.policy.FlatShipping
	if subtotal.GreaterThanOrEqual(c.policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Breakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping).Round(places),
	}
}
