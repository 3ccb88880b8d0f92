package quotations

import (
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/lineitems"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/pricing"
)

type CreateQuoteRequest struct {
	Name              string               `json:"name" validate:"required,max=200"`
	CompanyID         string               `json:"company_id" validate:"required"`
	ContactID         *string              `json:"contact_id,omitempty" validate:"omitempty,min=1"`
	BillingContactID  *string              `json:"billing_contact_id,omitempty" validate:"omitempty,min=1"`
	Currency          string               `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
	LineItems         []lineitems.Item     `json:"line_items" validate:"required,min=1"`
	DiscountType      pricing.DiscountType `json:"discount_type,omitempty" validate:"omitempty,oneof=percentage fixed"`
	DiscountValue     float64              `json:"discount_value" validate:"gte=0"`
	TaxRate           *float64             `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Stage             Stage                `json:"stage,omitempty" validate:"omitempty,oneof=qualification proposal negotiation closing won lost"`
	SignatureRequired bool                 `json:"signature_required"`
	ExpiryDate        *time.Time           `json:"expiry_date,omitempty"`
}

type UpdateQuoteRequest struct {
	Name              *string               `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	ContactID         *string               `json:"contact_id,omitempty"`
	BillingContactID  *string               `json:"billing_contact_id,omitempty"`
	Currency          *string               `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
	LineItems         *[]lineitems.Item     `json:"line_items,omitempty" validate:"omitempty,min=1"`
	DiscountType      *pricing.DiscountType `json:"discount_type,omitempty" validate:"omitempty,oneof=percentage fixed"`
	DiscountValue     *float64              `json:"discount_value,omitempty" validate:"omitempty,gte=0"`
	TaxRate           *float64              `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	Stage             *Stage                `json:"stage,omitempty" validate:"omitempty,oneof=qualification proposal negotiation closing won lost"`
	SignatureRequired *bool                 `json:"signature_required,omitempty"`
	ExpiryDate        *time.Time            `json:"expiry_date,omitempty"`
}

type ListQuotesRequest struct {
	CompanyID string  `json:"company_id,omitempty"`
	Status    *Status `json:"status,omitempty"`
	Stage     *Stage  `json:"stage,omitempty"`
	Limit     int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int     `json:"offset" validate:"gte=0"`
}

type ChangeStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

type EditLineItemsRequest struct {
	Operations []lineitems.Operation `json:"operations" validate:"required,min=1,dive"`
}

type EditLineItemsResponse struct {
	Quote   *Quote `json:"quote"`
	Changed bool   `json:"changed"`
}

// TotalsRequest asks for a pure computation with no quote involved.
type TotalsRequest struct {
	LineItems     []lineitems.Item     `json:"line_items"`
	DiscountType  pricing.DiscountType `json:"discount_type,omitempty" validate:"omitempty,oneof=percentage fixed"`
	DiscountValue float64              `json:"discount_value"`
	TaxRate       float64              `json:"tax_rate"`
}

type TotalsResponse struct {
	LineItems []lineitems.Item `json:"line_items"`
	pricing.Totals
}

type GeneratePDFResponse struct {
	PdfURL string `json:"pdf_url"`
}
