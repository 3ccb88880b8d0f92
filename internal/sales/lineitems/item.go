// Package lineitems holds the quote line item type and the ordered collection
// editor that owns a quote's lines while they are being edited.
package lineitems

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/pricing"
)

var (
	ErrIndexOutOfRange = errors.New("line item index out of range")
	ErrUnknownField    = errors.New("unknown line item field")
	ErrReadOnly        = errors.New("line items are read-only")
)

// Field names accepted by UpdateField.
const (
	FieldDescription     = "description"
	FieldQuantity        = "quantity"
	FieldUnitPrice       = "unit_price"
	FieldDiscountPercent = "discount_percent"
	FieldTaxPercent      = "tax_percent"
)

// Item is one priced row of a quote. Total is derived and is overwritten by
// Recalculate whenever an item enters the editor or a quote.
type Item struct {
	Description     string  `json:"description"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	DiscountPercent float64 `json:"discount_percent"`
	TaxPercent      float64 `json:"tax_percent"`
	Total           float64 `json:"total"`
}

// NewItem returns the default row appended by AddItem.
func NewItem() Item {
	return Item{Quantity: 1}
}

// Recalculate returns the item with Total derived from its inputs. Non-finite
// inputs are stored as zero.
func (i Item) Recalculate() Item {
	i.Quantity = pricing.Finite(i.Quantity)
	i.UnitPrice = pricing.Finite(i.UnitPrice)
	i.DiscountPercent = pricing.Finite(i.DiscountPercent)
	i.TaxPercent = pricing.Finite(i.TaxPercent)
	i.Total = pricing.LineTotal(i.Quantity, i.UnitPrice, i.DiscountPercent, i.TaxPercent)
	return i
}

// Normalize copies items and recomputes every total. A nil slice stays nil.
func Normalize(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for idx, item := range items {
		out[idx] = item.Recalculate()
	}
	return out
}

// Totals extracts the line totals in order.
func Totals(items []Item) []float64 {
	totals := make([]float64, len(items))
	for idx, item := range items {
		totals[idx] = item.Total
	}
	return totals
}

// WithField returns a copy of the item with one field set from raw text.
// Numeric fields that fail to parse are stored as zero.
func (i Item) WithField(field, value string) (Item, error) {
	switch field {
	case FieldDescription:
		i.Description = value
	case FieldQuantity:
		i.Quantity = parseNumber(value)
	case FieldUnitPrice:
		i.UnitPrice = parseNumber(value)
	case FieldDiscountPercent:
		i.DiscountPercent = parseNumber(value)
	case FieldTaxPercent:
		i.TaxPercent = parseNumber(value)
	default:
		return i, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return i.Recalculate(), nil
}

func parseNumber(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return pricing.Finite(f)
}
