// Package preview renders quotes for people: an HTML page for the browser and
// a PDF produced by Gotenberg or, without it, by gofpdf.
package preview

import (
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/pricing"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
)

// Row is one formatted line item.
type Row struct {
	Position    int
	Description string
	Quantity    string
	UnitPrice   string
	Discount    string
	Tax         string
	Total       string
}

// View is the display model shared by the HTML template and the PDF writer.
type View struct {
	QuoteID        string
	QuoteNumber    string
	Name           string
	Company        string
	Currency       string
	Status         string
	Locale         string
	ExpiryDate     string
	Rows           []Row
	Subtotal       string
	Discount       string
	DiscountLabel  string
	Tax            string
	TaxLabel       string
	Total          string
	SignedBy       string
	SignedTitle    string
	SignedAt       string
	SignatureImage string
	GeneratedAt    string
}

// BuildView formats a quote. Totals are recomputed from the lines so the
// document never shows stale figures.
func BuildView(q *quotations.Quote, companyName string, f *Formatter, now time.Time) View {
	quote := q.Clone()
	quote.Recalculate()

	v := View{
		QuoteID:       quote.ID,
		QuoteNumber:   quote.QuoteNumber,
		Name:          quote.Name,
		Company:       companyName,
		Currency:      quote.Currency,
		Status:        string(quote.Status),
		Locale:        f.Locale(),
		ExpiryDate:    f.Date(quote.ExpiryDate),
		Subtotal:      f.Money(quote.Subtotal, quote.Currency),
		Discount:      f.Money(quote.DiscountAmount, quote.Currency),
		DiscountLabel: "Discount",
		Tax:           f.Money(quote.TaxAmount, quote.Currency),
		TaxLabel:      "Tax (" + f.Percent(quote.TaxRate) + ")",
		Total:         f.Money(quote.TotalAmount, quote.Currency),
		GeneratedAt:   now.UTC().Format(time.RFC3339),
	}
	if v.Company == "" {
		v.Company = quote.CompanyID
	}
	if quote.DiscountType == pricing.DiscountPercentage {
		v.DiscountLabel = "Discount (" + f.Percent(quote.DiscountValue) + ")"
	}
	for i, item := range quote.LineItems {
		v.Rows = append(v.Rows, Row{
			Position:    i + 1,
			Description: item.Description,
			Quantity:    f.Quantity(item.Quantity),
			UnitPrice:   f.Money(item.UnitPrice, quote.Currency),
			Discount:    f.Percent(item.DiscountPercent),
			Tax:         f.Percent(item.TaxPercent),
			Total:       f.Money(item.Total, quote.Currency),
		})
	}
	if quote.SignedBy != nil {
		v.SignedBy = quote.SignedBy.Name
		v.SignedTitle = quote.SignedBy.Title
		v.SignedAt = f.Date(&quote.SignedBy.SignedAt)
		v.SignatureImage = quote.SignedBy.SignatureImage
	}
	return v
}
