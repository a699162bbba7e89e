// Package pricing computes the derived total of a pricing calculation.
//
// The roll-up is:
//
//	laborTotal     = sum(rate * hours)
//	materialsTotal = sum(quantity * unitPrice)
//	subtotal       = laborTotal + materialsTotal
//	overheadAmount = subtotal * overhead / 100
//	profitAmount   = (subtotal + overheadAmount) * profit / 100
//	total          = subtotal + overheadAmount + profitAmount
//
// Arithmetic is carried out in decimal and converted to float64 once, so the
// same inputs always give the same bit-identical output. Negative inputs are
// not rejected; they flow through the same formula.
//
// Every input gives a finite result: NaN counts as zero, infinities as the
// largest float64 of the same sign, and amounts beyond the float64 range are
// clamped to it. Either case sets Breakdown.Saturated.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"gcms/pkg/domain"
)

var hundred = decimal.NewFromInt(100)

// Breakdown carries every intermediate of the roll-up.
type Breakdown struct {
	LaborTotal     float64 `json:"laborTotal"`
	MaterialsTotal float64 `json:"materialsTotal"`
	Subtotal       float64 `json:"subtotal"`
	OverheadAmount float64 `json:"overheadAmount"`
	ProfitAmount   float64 `json:"profitAmount"`
	Total          float64 `json:"total"`

	// Saturated is set when an input was not finite or an amount was clamped.
	Saturated bool `json:"saturated,omitempty"`
}

// Calculate runs the roll-up over explicit line items and percentages.
func Calculate(labor []domain.LaborRate, materials []domain.Material, overheadPct, profitPct float64) Breakdown {
	var c converter
	laborTotal := decimal.Zero
	for _, l := range labor {
		laborTotal = laborTotal.Add(c.in(l.Rate).Mul(c.in(l.Hours)))
	}
	materialsTotal := decimal.Zero
	for _, m := range materials {
		materialsTotal = materialsTotal.Add(c.in(m.Quantity).Mul(c.in(m.UnitPrice)))
	}
	subtotal := laborTotal.Add(materialsTotal)
	overhead := subtotal.Mul(c.in(overheadPct)).Div(hundred)
	profit := subtotal.Add(overhead).Mul(c.in(profitPct)).Div(hundred)
	total := subtotal.Add(overhead).Add(profit)
	b := Breakdown{
		LaborTotal:     c.out(laborTotal),
		MaterialsTotal: c.out(materialsTotal),
		Subtotal:       c.out(subtotal),
		OverheadAmount: c.out(overhead),
		ProfitAmount:   c.out(profit),
		Total:          c.out(total),
	}
	b.Saturated = c.saturated
	return b
}

// converter moves values between float64 and decimal, keeping both sides
// finite and remembering whether it had to.
type converter struct {
	saturated bool
}

func (c *converter) in(v float64) decimal.Decimal {
	f := finite(v)
	if f != v {
		c.saturated = true
	}
	return decimal.NewFromFloat(f)
}

// finite maps NaN to zero and infinities to the largest float64 of the same
// sign. Finite values are returned unchanged.
func finite(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 0):
		return math.Copysign(math.MaxFloat64, v)
	}
	return v
}

func (c *converter) out(d decimal.Decimal) float64 {
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		c.saturated = true
		return math.Copysign(math.MaxFloat64, float64(d.Sign()))
	}
	return f
}

// Of runs the roll-up over a stored calculation, ignoring its TotalPrice.
func Of(pc domain.PricingCalculation) Breakdown {
	return Calculate(pc.LaborRates, pc.Materials, pc.Overhead, pc.Profit)
}

// Total returns the derived total price of pc.
func Total(pc domain.PricingCalculation) float64 {
	return Of(pc).Total
}

// Apply returns pc with TotalPrice overwritten by the derived total. Non-finite
// inputs are replaced the way Calculate reads them, so the result always
// encodes as JSON.
func Apply(pc domain.PricingCalculation) domain.PricingCalculation {
	if len(pc.LaborRates) > 0 {
		rates := make([]domain.LaborRate, len(pc.LaborRates))
		for i, l := range pc.LaborRates {
			l.Rate, l.Hours = finite(l.Rate), finite(l.Hours)
			rates[i] = l
		}
		pc.LaborRates = rates
	}
	if len(pc.Materials) > 0 {
		items := make([]domain.Material, len(pc.Materials))
		for i, m := range pc.Materials {
			m.Quantity, m.UnitPrice = finite(m.Quantity), finite(m.UnitPrice)
			items[i] = m
		}
		pc.Materials = items
	}
	pc.Overhead, pc.Profit = finite(pc.Overhead), finite(pc.Profit)
	pc.TotalPrice = Total(pc)
	return pc
}

// Drift reports whether the stored total disagrees with recomputation.
func Drift(pc domain.PricingCalculation) bool {
	return pc.TotalPrice != Total(pc)
}
