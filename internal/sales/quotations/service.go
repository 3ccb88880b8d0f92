package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/lineitems"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/pricing"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// Preference keys read when creating quotes.
const (
	PrefDefaultCurrency = "quote.default_currency"
	PrefDefaultTaxRate  = "quote.default_tax_rate"
)

type Service struct {
	repo      Repository
	directory Directory
	machine   StatusMachine
	prefs     shared.Preferences
	validator *validator.Validate
	logger    *slog.Logger
}

func NewService(repo Repository, directory Directory, machine StatusMachine, prefs shared.Preferences, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		directory: directory,
		machine:   machine,
		prefs:     prefs,
		validator: shared.NewValidator(),
		logger:    logger,
	}
}

func (s *Service) Create(ctx context.Context, req CreateQuoteRequest) (*Quote, error) {
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.LineItems[0].Description) == "" {
		return nil, shared.NewValidationError("line_items.0.description", "is required")
	}
	if err := s.verifyParties(ctx, req.CompanyID, req.ContactID, req.BillingContactID); err != nil {
		return nil, err
	}

	quote := Quote{
		Name:              strings.TrimSpace(req.Name),
		CompanyID:         req.CompanyID,
		ContactID:         req.ContactID,
		BillingContactID:  req.BillingContactID,
		Currency:          req.Currency,
		LineItems:         req.LineItems,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		Status:            StatusDraft,
		Stage:             req.Stage,
		SignatureRequired: req.SignatureRequired,
		ExpiryDate:        req.ExpiryDate,
	}
	if quote.Currency == "" {
		quote.Currency = s.preference(ctx, PrefDefaultCurrency, DefaultCurrency)
	}
	if req.TaxRate != nil {
		quote.TaxRate = *req.TaxRate
	} else if raw := s.preference(ctx, PrefDefaultTaxRate, ""); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			quote.TaxRate = pricing.Percent(rate)
		}
	}
	if quote.DiscountType == "" {
		quote.DiscountType = pricing.DiscountPercentage
	}
	if quote.Stage == "" {
		quote.Stage = StageQualification
	}
	quote.Recalculate()

	created, err := s.repo.Create(ctx, quote)
	if err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Quote, error) {
	quote, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	return quote, nil
}

func (s *Service) List(ctx context.Context, req ListQuotesRequest) ([]Quote, error) {
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	quotes, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	return quotes, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateQuoteRequest) (*Quote, error) {
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}

	quote := existing.Clone()
	pricingChanged := false
	if req.Name != nil {
		quote.Name = strings.TrimSpace(*req.Name)
	}
	if req.Currency != nil && *req.Currency != quote.Currency {
		quote.Currency = *req.Currency
		pricingChanged = true
	}
	if req.DiscountType != nil && *req.DiscountType != quote.DiscountType {
		quote.DiscountType = *req.DiscountType
		pricingChanged = true
	}
	if req.DiscountValue != nil && *req.DiscountValue != quote.DiscountValue {
		quote.DiscountValue = *req.DiscountValue
		pricingChanged = true
	}
	if req.TaxRate != nil && *req.TaxRate != quote.TaxRate {
		quote.TaxRate = *req.TaxRate
		pricingChanged = true
	}
	if pricingChanged && !quote.Status.CanEditLines() {
		return nil, fmt.Errorf("%w: status %s", ErrNotEditable, quote.Status)
	}
	if req.LineItems != nil && !lineitems.Equal(*req.LineItems, existing.LineItems) {
		if strings.TrimSpace((*req.LineItems)[0].Description) == "" {
			return nil, shared.NewValidationError("line_items.0.description", "is required")
		}
		if err := quote.UpdateLineItems(*req.LineItems); err != nil {
			return nil, err
		}
	}
	if req.Stage != nil {
		quote.Stage = *req.Stage
	}
	if req.SignatureRequired != nil {
		quote.SignatureRequired = *req.SignatureRequired
	}
	if req.ExpiryDate != nil {
		quote.ExpiryDate = req.ExpiryDate
	}
	if req.ContactID != nil || req.BillingContactID != nil {
		if req.ContactID != nil {
			quote.ContactID = emptyToNil(*req.ContactID)
		}
		if req.BillingContactID != nil {
			quote.BillingContactID = emptyToNil(*req.BillingContactID)
		}
		if err := s.verifyParties(ctx, quote.CompanyID, quote.ContactID, quote.BillingContactID); err != nil {
			return nil, err
		}
	}
	quote.Recalculate()

	updated, err := s.repo.Update(ctx, *quote)
	if err != nil {
		return nil, fmt.Errorf("update quote: %w", err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	return nil
}

// UpdateLineItems replaces the quote's lines. Nothing is written when the new
// lines equal the stored ones; the returned flag reports whether a write
// happened.
func (s *Service) UpdateLineItems(ctx context.Context, id string, items []lineitems.Item) (*Quote, bool, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("get quote: %w", err)
	}
	if lineitems.Equal(items, existing.LineItems) {
		return existing, false, nil
	}
	if len(items) == 0 || strings.TrimSpace(items[0].Description) == "" {
		return nil, false, shared.NewValidationError("line_items.0.description", "is required")
	}
	quote := existing.Clone()
	if err := quote.UpdateLineItems(items); err != nil {
		return nil, false, err
	}
	updated, err := s.repo.Update(ctx, *quote)
	if err != nil {
		return nil, false, fmt.Errorf("update line items: %w", err)
	}
	return updated, true, nil
}

// EditLineItems runs editor operations against the stored lines and persists
// only when the editor reports a change.
func (s *Service) EditLineItems(ctx context.Context, id string, req EditLineItemsRequest) (*Quote, bool, error) {
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return nil, false, err
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("get quote: %w", err)
	}

	quote := existing.Clone()
	var changed []lineitems.Item
	editor := quote.Editor(func(items []lineitems.Item) { changed = items })
	notified, err := editor.Apply(req.Operations)
	switch {
	case errors.Is(err, lineitems.ErrReadOnly):
		return nil, false, fmt.Errorf("%w: status %s", ErrNotEditable, quote.Status)
	case err != nil:
		return nil, false, shared.NewValidationError("operations", err.Error())
	case !notified:
		return existing, false, nil
	}
	if len(changed) == 0 || strings.TrimSpace(changed[0].Description) == "" {
		return nil, false, shared.NewValidationError("line_items.0.description", "is required")
	}

	if err := quote.UpdateLineItems(changed); err != nil {
		return nil, false, err
	}
	updated, err := s.repo.Update(ctx, *quote)
	if err != nil {
		return nil, false, fmt.Errorf("update line items: %w", err)
	}
	return updated, true, nil
}

// ChangeStatus moves a quote to a new status. Draft to Draft is accepted as a
// no-op; every other move is checked by the status machine.
func (s *Service) ChangeStatus(ctx context.Context, id string, to Status) (*Quote, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if existing.Status == StatusDraft && to == StatusDraft {
		return existing, nil
	}
	if s.machine == nil {
		return nil, errors.New("quotations: status machine not configured")
	}
	if err := s.machine.Apply(existing.Clone(), to); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, to)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.logger.Info("quote status changed",
		slog.String("quote_id", id),
		slog.String("from", string(existing.Status)),
		slog.String("to", string(to)),
	)
	return updated, nil
}

func (s *Service) GeneratePDF(ctx context.Context, id string) (string, error) {
	url, err := s.repo.GeneratePDF(ctx, id)
	if err != nil {
		return "", fmt.Errorf("generate pdf: %w", err)
	}
	return url, nil
}

// Totals computes line and quote totals without touching any quote.
func (s *Service) Totals(req TotalsRequest) (TotalsResponse, error) {
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return TotalsResponse{}, err
	}
	items := lineitems.Normalize(req.LineItems)
	if items == nil {
		items = []lineitems.Item{}
	}
	return TotalsResponse{
		LineItems: items,
		Totals:    pricing.QuoteTotals(lineitems.Totals(items), req.DiscountType, req.DiscountValue, req.TaxRate),
	}, nil
}

// verifyParties checks that the company exists and that the contacts, when
// set, belong to it. Lookups run concurrently.
func (s *Service) verifyParties(ctx context.Context, companyID string, contactID, billingContactID *string) error {
	if s.directory == nil {
		return nil
	}
	var (
		company        *Company
		contact        *Contact
		billingContact *Contact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.directory.GetCompany(gctx, companyID)
		company, err = lookup(c, err)
		return err
	})
	if contactID != nil {
		g.Go(func() error {
			c, err := s.directory.GetContact(gctx, *contactID)
			contact, err = lookup(c, err)
			return err
		})
	}
	if billingContactID != nil {
		g.Go(func() error {
			c, err := s.directory.GetContact(gctx, *billingContactID)
			billingContact, err = lookup(c, err)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("verify parties: %w", err)
	}

	verr := &shared.ValidationError{}
	if company == nil {
		verr.Add("company_id", "does not exist")
	}
	checkContact(verr, "contact_id", contactID, contact, companyID)
	checkContact(verr, "billing_contact_id", billingContactID, billingContact, companyID)
	if !verr.Empty() {
		return verr
	}
	return nil
}

func checkContact(verr *shared.ValidationError, field string, id *string, contact *Contact, companyID string) {
	if id == nil {
		return
	}
	switch {
	case contact == nil:
		verr.Add(field, "does not exist")
	case contact.CompanyID != companyID:
		verr.Add(field, "does not belong to company")
	}
}

// lookup turns a not-found answer into a nil result.
func lookup[T any](v *T, err error) (*T, error) {
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (s *Service) preference(ctx context.Context, key, fallback string) string {
	if s.prefs == nil {
		return fallback
	}
	val, ok, err := s.prefs.Get(ctx, key)
	if err != nil {
		s.logger.Warn("read preference", slog.String("key", key), slog.Any("error", err))
		return fallback
	}
	if !ok || strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

func emptyToNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
