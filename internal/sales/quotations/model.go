package quotations

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/lineitems"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/pricing"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

var (
	ErrNotEditable   = fmt.Errorf("%w: quote line items are locked", shared.ErrConflict)
	ErrInvalidStatus = fmt.Errorf("%w: unknown status", shared.ErrValidation)
)

// DefaultCurrency applies when neither the request nor preferences name one.
const DefaultCurrency = "USD"

// Status tracks the document's delivery and signature lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusViewed    Status = "viewed"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusConverted Status = "converted"
)

// IsValid checks if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusViewed, StatusAccepted, StatusRejected, StatusExpired, StatusConverted:
		return true
	}
	return false
}

// CanEditLines reports whether line items may change in this status.
func (s Status) CanEditLines() bool {
	return s == StatusDraft
}

// Stage is the sales pipeline position. It is independent of Status.
type Stage string

const (
	StageQualification Stage = "qualification"
	StageProposal      Stage = "proposal"
	StageNegotiation   Stage = "negotiation"
	StageClosing       Stage = "closing"
	StageWon           Stage = "won"
	StageLost          Stage = "lost"
)

// IsValid checks if the stage is a known value.
func (s Stage) IsValid() bool {
	switch s {
	case StageQualification, StageProposal, StageNegotiation, StageClosing, StageWon, StageLost:
		return true
	}
	return false
}

// Signer records who accepted the quote.
type Signer struct {
	Name           string    `json:"name"`
	Title          string    `json:"title,omitempty"`
	Email          string    `json:"email"`
	SignatureImage string    `json:"signature_image"`
	SignedAt       time.Time `json:"signed_at"`
}

// Quote is the deal aggregate. Subtotal through TotalAmount are derived from
// the line items and the quote-level discount and tax policy.
type Quote struct {
	ID                string               `json:"id"`
	QuoteNumber       string               `json:"quote_number"`
	Name              string               `json:"name"`
	CompanyID         string               `json:"company_id"`
	ContactID         *string              `json:"contact_id,omitempty"`
	BillingContactID  *string              `json:"billing_contact_id,omitempty"`
	Currency          string               `json:"currency"`
	LineItems         []lineitems.Item     `json:"line_items"`
	DiscountType      pricing.DiscountType `json:"discount_type"`
	DiscountValue     float64              `json:"discount_value"`
	TaxRate           float64              `json:"tax_rate"`
	Subtotal          float64              `json:"subtotal"`
	DiscountAmount    float64              `json:"discount_amount"`
	TaxAmount         float64              `json:"tax_amount"`
	TotalAmount       float64              `json:"total_amount"`
	Status            Status               `json:"status"`
	Stage             Stage                `json:"stage"`
	SignatureRequired bool                 `json:"signature_required"`
	SignedBy          *Signer              `json:"signed_by,omitempty"`
	SignatureDate     *time.Time           `json:"signature_date,omitempty"`
	ExpiryDate        *time.Time           `json:"expiry_date,omitempty"`
	PdfURL            string               `json:"pdf_url,omitempty"`
	RecipientEmail    string               `json:"recipient_email,omitempty"`
	RecipientName     string               `json:"recipient_name,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// ComputeTotals derives the quote figures from the current line items. It
// does not modify the quote.
func (q *Quote) ComputeTotals() pricing.Totals {
	items := lineitems.Normalize(q.LineItems)
	return pricing.QuoteTotals(lineitems.Totals(items), q.DiscountType, q.DiscountValue, q.TaxRate)
}

// Recalculate refreshes line totals and stores the derived quote figures.
func (q *Quote) Recalculate() {
	q.LineItems = lineitems.Normalize(q.LineItems)
	totals := q.ComputeTotals()
	q.Subtotal = totals.Subtotal
	q.DiscountAmount = totals.DiscountAmount
	q.TaxAmount = totals.TaxAmount
	q.TotalAmount = totals.TotalAmount
}

// Totals returns the stored figures.
func (q *Quote) Totals() pricing.Totals {
	return pricing.Totals{
		Subtotal:       q.Subtotal,
		DiscountAmount: q.DiscountAmount,
		TaxAmount:      q.TaxAmount,
		TotalAmount:    q.TotalAmount,
	}
}

// UpdateLineItems replaces the line items and recomputes all totals. Only
// draft quotes accept new lines.
func (q *Quote) UpdateLineItems(items []lineitems.Item) error {
	if !q.Status.CanEditLines() {
		return fmt.Errorf("%w: status %s", ErrNotEditable, q.Status)
	}
	q.LineItems = lineitems.Normalize(items)
	if q.LineItems == nil {
		q.LineItems = []lineitems.Item{}
	}
	q.Recalculate()
	return nil
}

// Editor returns a line item editor seeded with the quote's lines. The editor
// is read-only unless the quote is a draft.
func (q *Quote) Editor(onChange lineitems.ChangeFunc) *lineitems.Editor {
	e := lineitems.NewEditor(q.LineItems, onChange)
	e.SetReadOnly(!q.Status.CanEditLines())
	return e
}

// IsOverdue reports whether the expiry date has passed at now.
func (q *Quote) IsOverdue(now time.Time) bool {
	return q.ExpiryDate != nil && now.After(*q.ExpiryDate)
}

// Clone returns a deep copy.
func (q *Quote) Clone() *Quote {
	if q == nil {
		return nil
	}
	c := *q
	if q.LineItems != nil {
		c.LineItems = append([]lineitems.Item(nil), q.LineItems...)
	}
	if q.SignedBy != nil {
		s := *q.SignedBy
		c.SignedBy = &s
	}
	c.ContactID = cloneString(q.ContactID)
	c.BillingContactID = cloneString(q.BillingContactID)
	c.SignatureDate = cloneTime(q.SignatureDate)
	c.ExpiryDate = cloneTime(q.ExpiryDate)
	return &c
}

// Company is the account a quote is addressed to.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Contact is a person at a company.
type Contact struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
