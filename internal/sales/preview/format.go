package preview

import (
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts and dates for one display locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter parses a BCP 47 locale such as "en-US" or "de-DE". Unknown
// locales fall back to English.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || tag == language.Und {
		tag = language.English
	}
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// Locale returns the resolved language tag.
func (f *Formatter) Locale() string { return f.tag.String() }

// Money formats an amount with the currency's standard minor units, e.g.
// "USD 1,234.50" or "JPY 1,235".
func (f *Formatter) Money(amount float64, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return f.printer.Sprintf("%s %v", code, number.Decimal(amount, number.Scale(2)))
	}
	scale, _ := currency.Standard.Rounding(unit)
	return f.printer.Sprintf("%s %v", unit.String(), number.Decimal(amount, number.Scale(scale)))
}

// Percent formats a 0-100 percentage.
func (f *Formatter) Percent(value float64) string {
	return f.printer.Sprintf("%v%%", number.Decimal(value, number.MaxFractionDigits(2)))
}

// Quantity formats a line quantity without trailing zeros.
func (f *Formatter) Quantity(value float64) string {
	return f.printer.Sprintf("%v", number.Decimal(value, number.MaxFractionDigits(3)))
}

// Date formats a date as ISO 8601.
func (f *Formatter) Date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
