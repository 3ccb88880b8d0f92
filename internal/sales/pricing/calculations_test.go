package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name                      string
		qty, price, discount, tax float64
		want                      float64
	}{
		{"discount and tax", 2, 100, 10, 8, 194.4},
		{"plain", 3, 25.5, 0, 0, 76.5},
		{"full discount", 4, 10, 100, 20, 0},
		{"zero quantity", 0, 99, 0, 10, 0},
		{"negative quantity coerced", -2, 100, 0, 0, 0},
		{"negative price coerced", 2, -100, 0, 0, 0},
		{"nan quantity coerced", math.NaN(), 100, 0, 0, 0},
		{"infinite price coerced", 1, math.Inf(1), 0, 0, 0},
		{"discount above 100 clamped", 1, 50, 150, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, LineTotal(tt.qty, tt.price, tt.discount, tt.tax), 1e-9)
		})
	}
}

func TestLineTotalMatchesFormulaAcrossGrid(t *testing.T) {
	for _, qty := range []float64{0, 1, 2.5, 7} {
		for _, price := range []float64{0, 0.99, 100, 1234.56} {
			for _, discount := range []float64{0, 12.5, 50, 100} {
				for _, tax := range []float64{0, 8, 21, 100} {
					want := qty * price * (1 - discount/100) * (1 + tax/100)
					assert.InDelta(t, want, LineTotal(qty, price, discount, tax), 1e-6)
				}
			}
		}
	}
}

func TestCalculateLineTotalsParts(t *testing.T) {
	discount, tax, total := CalculateLineTotals(2, 100, 10, 8)
	assert.InDelta(t, 20, discount, 1e-9)
	assert.InDelta(t, 14.4, tax, 1e-9)
	assert.InDelta(t, 194.4, total, 1e-9)
}

func TestQuoteTotalsSubtotalIsExactSum(t *testing.T) {
	totals := QuoteTotals([]float64{100, 50.5, 0}, DiscountPercentage, 0, 0)
	assert.Equal(t, 150.5, totals.Subtotal)
	assert.Equal(t, 150.5, totals.TotalAmount)
}

func TestQuoteTotalsPercentageDiscountThenTax(t *testing.T) {
	totals := QuoteTotals([]float64{1000}, DiscountPercentage, 10, 8)
	assert.InDelta(t, 1000, totals.Subtotal, 1e-9)
	assert.InDelta(t, 100, totals.DiscountAmount, 1e-9)
	assert.InDelta(t, 72, totals.TaxAmount, 1e-9)
	assert.InDelta(t, 972, totals.TotalAmount, 1e-9)
}

func TestQuoteTotalsFixedDiscount(t *testing.T) {
	totals := QuoteTotals([]float64{300, 200}, DiscountFixed, 50, 0)
	assert.InDelta(t, 50, totals.DiscountAmount, 1e-9)
	assert.InDelta(t, 0, totals.TaxAmount, 1e-9)
	assert.InDelta(t, 450, totals.TotalAmount, 1e-9)
}

func TestQuoteTotalsKeepsLineTaxSeparateFromQuoteTax(t *testing.T) {
	// A taxed line feeds its taxed total into the subtotal; the quote tax is a second layer.
	line := LineTotal(1, 100, 0, 10)
	totals := QuoteTotals([]float64{line}, DiscountPercentage, 0, 10)
	assert.InDelta(t, 110, totals.Subtotal, 1e-9)
	assert.InDelta(t, 11, totals.TaxAmount, 1e-9)
	assert.InDelta(t, 121, totals.TotalAmount, 1e-9)
}

func TestQuoteTotalsIsPure(t *testing.T) {
	lines := []float64{194.4, 12.25}
	first := QuoteTotals(lines, DiscountPercentage, 5, 7)
	second := QuoteTotals(lines, DiscountPercentage, 5, 7)
	assert.Equal(t, first, second)
	assert.Equal(t, []float64{194.4, 12.25}, lines)
}

func TestDiscountTypeIsValid(t *testing.T) {
	assert.True(t, DiscountPercentage.IsValid())
	assert.True(t, DiscountFixed.IsValid())
	assert.False(t, DiscountType("bogus").IsValid())
}
