// Package pricing computes line item and quote totals.
//
// Values keep full float64 precision. Rounding to currency minor units is a
// display concern handled by the preview package.
package pricing

import "math"

// DiscountType selects how a quote-level discount value is read.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// IsValid checks if the discount type is known.
func (t DiscountType) IsValid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Totals holds the quote-level roll-up.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxAmount      float64 `json:"tax_amount"`
	TotalAmount    float64 `json:"total_amount"`
}

// LineTotal returns quantity*unitPrice*(1-discount/100)*(1+tax/100).
// Negative or non-finite quantity and unit price count as zero.
func LineTotal(quantity, unitPrice, discountPercent, taxPercent float64) float64 {
	_, _, total := CalculateLineTotals(quantity, unitPrice, discountPercent, taxPercent)
	return total
}

// CalculateLineTotals also exposes the discount and tax parts of a line.
func CalculateLineTotals(quantity, unitPrice, discountPercent, taxPercent float64) (discountAmount, taxAmount, lineTotal float64) {
	grossAmount := NonNegative(quantity) * NonNegative(unitPrice)
	discountAmount = grossAmount * (Percent(discountPercent) / 100)
	netAmount := grossAmount - discountAmount
	taxAmount = netAmount * (Percent(taxPercent) / 100)
	lineTotal = netAmount + taxAmount
	return
}

// QuoteTotals rolls line totals up into quote figures. Line totals already
// carry their own discount and tax; the quote-level discount and tax rate are
// applied on top of the subtotal as a second, independent layer.
func QuoteTotals(lineTotals []float64, discountType DiscountType, discountValue, taxRate float64) Totals {
	var subtotal float64
	for _, t := range lineTotals {
		subtotal += Finite(t)
	}

	var discount float64
	switch discountType {
	case DiscountFixed:
		discount = NonNegative(discountValue)
	default:
		discount = subtotal * (Percent(discountValue) / 100)
	}

	tax := (subtotal - discount) * (Percent(taxRate) / 100)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		TotalAmount:    subtotal - discount + tax,
	}
}

// NonNegative coerces negative, NaN and infinite values to zero.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Percent clamps a percentage into [0,100]; non-finite values become zero.
func Percent(v float64) float64 {
	v = NonNegative(v)
	if v > 100 {
		return 100
	}
	return v
}

// Finite maps NaN and infinities to zero.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
