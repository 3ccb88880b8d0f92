package crmapi

import (
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/lineitems"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/pricing"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
)

// Backend payloads use camelCase keys.

type lineItemWire struct {
	Description     string  `json:"description"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unitPrice"`
	DiscountPercent float64 `json:"discountPercent"`
	TaxPercent      float64 `json:"taxPercent"`
	Total           float64 `json:"total"`
}

type signerWire struct {
	Name           string    `json:"name"`
	Title          string    `json:"title,omitempty"`
	Email          string    `json:"email"`
	SignatureImage string    `json:"signatureImage"`
	SignedAt       time.Time `json:"signedAt"`
}

type dealWire struct {
	ID                string         `json:"id,omitempty"`
	QuoteNumber       string         `json:"quoteNumber,omitempty"`
	Name              string         `json:"name"`
	CompanyID         string         `json:"companyId"`
	ContactID         *string        `json:"contactId,omitempty"`
	BillingContactID  *string        `json:"billingContactId,omitempty"`
	Currency          string         `json:"currency"`
	LineItems         []lineItemWire `json:"lineItems"`
	DiscountType      string         `json:"discountType"`
	DiscountValue     float64        `json:"discountValue"`
	TaxRate           float64        `json:"taxRate"`
	Subtotal          float64        `json:"subtotal"`
	DiscountAmount    float64        `json:"discountAmount"`
	TaxAmount         float64        `json:"taxAmount"`
	TotalAmount       float64        `json:"totalAmount"`
	Status            string         `json:"status,omitempty"`
	Stage             string         `json:"stage,omitempty"`
	SignatureRequired bool           `json:"signatureRequired"`
	SignedBy          *signerWire    `json:"signedBy,omitempty"`
	SignatureDate     *time.Time     `json:"signatureDate,omitempty"`
	ExpiryDate        *time.Time     `json:"expiryDate,omitempty"`
	PdfURL            string         `json:"pdfUrl,omitempty"`
	RecipientEmail    string         `json:"recipientEmail,omitempty"`
	RecipientName     string         `json:"recipientName,omitempty"`
	CreatedAt         *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt         *time.Time     `json:"updatedAt,omitempty"`
}

type companyWire struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type contactWire struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

type statusWire struct {
	Status string `json:"status"`
}

type pdfWire struct {
	PdfURL string `json:"pdfUrl"`
}

type sendSignatureWire struct {
	RecipientEmail string `json:"recipientEmail"`
	RecipientName  string `json:"recipientName"`
}

type verificationWire struct {
	Email string    `json:"email"`
	Deal  *dealWire `json:"deal"`
}

type submissionWire struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Title          string `json:"title,omitempty"`
	SignatureImage string `json:"signatureImage"`
}

// processWire accepts either the updated deal or a {deal} envelope.
type processWire struct {
	dealWire
	Deal *dealWire `json:"deal,omitempty"`
}

func (p processWire) quote() *quotations.Quote {
	if p.Deal != nil {
		return p.Deal.toDomain()
	}
	return p.dealWire.toDomain()
}

func toWire(q quotations.Quote) dealWire {
	w := dealWire{
		ID:                q.ID,
		QuoteNumber:       q.QuoteNumber,
		Name:              q.Name,
		CompanyID:         q.CompanyID,
		ContactID:         q.ContactID,
		BillingContactID:  q.BillingContactID,
		Currency:          q.Currency,
		LineItems:         make([]lineItemWire, 0, len(q.LineItems)),
		DiscountType:      string(q.DiscountType),
		DiscountValue:     q.DiscountValue,
		TaxRate:           q.TaxRate,
		Subtotal:          q.Subtotal,
		DiscountAmount:    q.DiscountAmount,
		TaxAmount:         q.TaxAmount,
		TotalAmount:       q.TotalAmount,
		Status:            string(q.Status),
		Stage:             string(q.Stage),
		SignatureRequired: q.SignatureRequired,
		ExpiryDate:        q.ExpiryDate,
		RecipientEmail:    q.RecipientEmail,
		RecipientName:     q.RecipientName,
	}
	for _, item := range q.LineItems {
		w.LineItems = append(w.LineItems, lineItemWire{
			Description:     item.Description,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			TaxPercent:      item.TaxPercent,
			Total:           item.Total,
		})
	}
	return w
}

// toDomain maps a backend deal. Line totals and quote totals are recomputed
// locally so a stale backend figure never reaches callers.
func (w *dealWire) toDomain() *quotations.Quote {
	if w == nil {
		return nil
	}
	q := &quotations.Quote{
		ID:                w.ID,
		QuoteNumber:       w.QuoteNumber,
		Name:              w.Name,
		CompanyID:         w.CompanyID,
		ContactID:         w.ContactID,
		BillingContactID:  w.BillingContactID,
		Currency:          w.Currency,
		LineItems:         make([]lineitems.Item, 0, len(w.LineItems)),
		DiscountType:      pricing.DiscountType(w.DiscountType),
		DiscountValue:     w.DiscountValue,
		TaxRate:           w.TaxRate,
		Status:            quotations.Status(w.Status),
		Stage:             quotations.Stage(w.Stage),
		SignatureRequired: w.SignatureRequired,
		SignatureDate:     w.SignatureDate,
		ExpiryDate:        w.ExpiryDate,
		PdfURL:            w.PdfURL,
		RecipientEmail:    w.RecipientEmail,
		RecipientName:     w.RecipientName,
	}
	if q.Currency == "" {
		q.Currency = quotations.DefaultCurrency
	}
	if !q.DiscountType.IsValid() {
		q.DiscountType = pricing.DiscountPercentage
	}
	if q.Status == "" {
		q.Status = quotations.StatusDraft
	}
	for _, item := range w.LineItems {
		q.LineItems = append(q.LineItems, lineitems.Item{
			Description:     item.Description,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			DiscountPercent: item.DiscountPercent,
			TaxPercent:      item.TaxPercent,
		})
	}
	if w.SignedBy != nil {
		q.SignedBy = &quotations.Signer{
			Name:           w.SignedBy.Name,
			Title:          w.SignedBy.Title,
			Email:          w.SignedBy.Email,
			SignatureImage: w.SignedBy.SignatureImage,
			SignedAt:       w.SignedBy.SignedAt,
		}
	}
	if w.CreatedAt != nil {
		q.CreatedAt = *w.CreatedAt
	}
	if w.UpdatedAt != nil {
		q.UpdatedAt = *w.UpdatedAt
	}
	q.Recalculate()
	return q
}
