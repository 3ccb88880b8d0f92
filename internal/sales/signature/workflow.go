package signature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/signature/capture"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// Backend is the CRM side of the signing flow. It mints tokens, sends the
// e-mail and records signatures.
type Backend interface {
	SendSignatureRequest(ctx context.Context, quoteID, recipientEmail, recipientName string) error
	VerifySignatureToken(ctx context.Context, token string) (*Verification, error)
	ProcessSignature(ctx context.Context, token string, sub Submission) (*quotations.Quote, error)
}

// Verification is what a valid token unlocks.
type Verification struct {
	Email string
	Quote *quotations.Quote
}

// SendRequest names the recipient of a signature request.
type SendRequest struct {
	RecipientEmail string `json:"recipient_email" validate:"required,email"`
	RecipientName  string `json:"recipient_name" validate:"required,max=200"`
}

// Submission is a signer's answer on the public signing page.
type Submission struct {
	Name           string `json:"name" validate:"required,max=200"`
	Email          string `json:"email" validate:"required,email"`
	Title          string `json:"title,omitempty" validate:"max=200"`
	SignatureImage string `json:"signature_image" validate:"required"`
}

// Workflow drives quote status through the signing lifecycle.
type Workflow struct {
	repo      quotations.Repository
	backend   Backend
	ledger    Ledger
	machine   *Machine
	metrics   *Metrics
	validator *validator.Validate
	logger    *slog.Logger
	verify    singleflight.Group
	now       func() time.Time
}

func NewWorkflow(repo quotations.Repository, backend Backend, ledger Ledger, metrics *Metrics, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	if ledger == nil {
		ledger = NewMemoryLedger(0)
	}
	return &Workflow{
		repo:      repo,
		backend:   backend,
		ledger:    ledger,
		machine:   NewMachine(),
		metrics:   metrics,
		validator: shared.NewValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// Machine exposes the status machine so the quote service can share it.
func (w *Workflow) Machine() *Machine { return w.machine }

// SendSignatureRequest asks the backend to mail a signing link and moves the
// quote from Draft to Sent.
func (w *Workflow) SendSignatureRequest(ctx context.Context, quoteID string, req SendRequest) (*quotations.Quote, error) {
	req.RecipientEmail = strings.TrimSpace(req.RecipientEmail)
	req.RecipientName = strings.TrimSpace(req.RecipientName)
	if err := shared.ValidateStruct(w.validator, req); err != nil {
		return nil, err
	}
	quote, err := w.repo.Get(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	from := quote.Status
	if err := w.machine.Transition(quote, quotations.StatusSent, TriggerSend); err != nil {
		return nil, err
	}
	if err := w.backend.SendSignatureRequest(ctx, quoteID, req.RecipientEmail, req.RecipientName); err != nil {
		return nil, fmt.Errorf("send signature request: %w", err)
	}
	updated, err := w.repo.UpdateStatus(ctx, quoteID, quotations.StatusSent)
	if err != nil {
		return nil, fmt.Errorf("mark quote sent: %w", err)
	}
	updated.RecipientEmail = req.RecipientEmail
	updated.RecipientName = req.RecipientName
	w.metrics.transition(from, quotations.StatusSent, TriggerSend)
	w.logger.Info("signature request sent", slog.String("quote_id", quoteID))
	return updated, nil
}

// VerifySignatureToken checks a token and returns a Session bound to it.
// Concurrent verifications of the same token share one backend call.
func (w *Workflow) VerifySignatureToken(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		w.metrics.tokenFailure("blank")
		return nil, fmt.Errorf("%w: token is blank", shared.ErrInvalidToken)
	}
	used, err := w.ledger.Consumed(ctx, token)
	if err != nil {
		return nil, err
	}
	if used {
		w.metrics.tokenFailure("reused")
		return nil, fmt.Errorf("%w: already used", shared.ErrInvalidToken)
	}

	// The shared call is detached from each caller's cancellation.
	ch := w.verify.DoChan(Fingerprint(token), func() (any, error) {
		vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), verifyTimeout)
		defer cancel()
		return w.backend.VerifySignatureToken(vctx, token)
	})
	var result singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result = <-ch:
	}
	res, err := result.Val, result.Err
	if err != nil {
		if errors.Is(err, shared.ErrInvalidToken) {
			w.metrics.tokenFailure("rejected")
		}
		return nil, fmt.Errorf("verify signature token: %w", err)
	}
	v, _ := res.(*Verification)
	if v == nil || v.Quote == nil {
		return nil, fmt.Errorf("verify signature token: %w: empty verification", shared.ErrBackend)
	}

	quote := v.Quote.Clone()
	if quote.IsOverdue(w.now()) {
		w.metrics.tokenFailure("expired")
		return nil, fmt.Errorf("%w: quote expired", shared.ErrInvalidToken)
	}
	from := quote.Status
	if err := w.machine.Transition(quote, quotations.StatusViewed, TriggerView); err != nil {
		w.metrics.tokenFailure("status")
		return nil, fmt.Errorf("%w: quote is %s", shared.ErrInvalidToken, from)
	}
	w.metrics.transition(from, quotations.StatusViewed, TriggerView)
	return &Session{workflow: w, token: token, Email: v.Email, Quote: quote}, nil
}

// ProcessSignature verifies the token and then records the signature.
func (w *Workflow) ProcessSignature(ctx context.Context, token string, sub Submission) (*quotations.Quote, error) {
	session, err := w.VerifySignatureToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return session.ProcessSignature(ctx, sub)
}

// UpdateDealStatus is the authenticated operator override. It moves a quote
// to Accepted or Rejected without a signature.
func (w *Workflow) UpdateDealStatus(ctx context.Context, quoteID string, to quotations.Status) (*quotations.Quote, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("%w: %q", quotations.ErrInvalidStatus, to)
	}
	return w.move(ctx, quoteID, to, TriggerOperator)
}

// Convert marks an accepted quote as turned into an order.
func (w *Workflow) Convert(ctx context.Context, quoteID string) (*quotations.Quote, error) {
	return w.move(ctx, quoteID, quotations.StatusConverted, TriggerConvert)
}

const (
	// verifyTimeout bounds a shared token verification once it no longer
	// follows the caller's context.
	verifyTimeout = 30 * time.Second
	// sweepPageSize is the List page size used by ExpireOverdue.
	sweepPageSize = 200
)

// ExpireOverdue moves every Sent or Viewed quote whose expiry date is before
// now to Expired. Candidates are collected from every page before any status
// is written, so expiring a quote never shifts the pages still to be read.
// It keeps going past individual failures and reports how many quotes it
// expired.
func (w *Workflow) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	var (
		expired int
		errs    []error
	)
	for _, status := range []quotations.Status{quotations.StatusSent, quotations.StatusViewed} {
		overdue, err := w.listOverdue(ctx, status, now)
		if err != nil {
			errs = append(errs, err)
		}
		for i := range overdue {
			quote := &overdue[i]
			if err := w.machine.Transition(quote.Clone(), quotations.StatusExpired, TriggerExpire); err != nil {
				errs = append(errs, err)
				continue
			}
			if _, err := w.repo.UpdateStatus(ctx, quote.ID, quotations.StatusExpired); err != nil {
				errs = append(errs, fmt.Errorf("expire quote %s: %w", quote.ID, err))
				continue
			}
			w.metrics.transition(status, quotations.StatusExpired, TriggerExpire)
			expired++
		}
	}
	if expired > 0 {
		w.logger.Info("expired overdue quotes", slog.Int("count", expired))
	}
	return expired, errors.Join(errs...)
}

// listOverdue pages through the quotes in status and keeps the overdue ones.
// A failing page stops the listing; what was collected so far is returned
// with the error.
func (w *Workflow) listOverdue(ctx context.Context, status quotations.Status, now time.Time) ([]quotations.Quote, error) {
	var overdue []quotations.Quote
	for offset := 0; ; {
		page, err := w.repo.List(ctx, quotations.ListQuotesRequest{Status: &status, Limit: sweepPageSize, Offset: offset})
		if err != nil {
			return overdue, fmt.Errorf("list %s quotes at offset %d: %w", status, offset, err)
		}
		for _, quote := range page {
			if quote.Status == status && quote.IsOverdue(now) {
				overdue = append(overdue, quote)
			}
		}
		if len(page) < sweepPageSize {
			return overdue, nil
		}
		offset += len(page)
	}
}

func (w *Workflow) move(ctx context.Context, quoteID string, to quotations.Status, trigger Trigger) (*quotations.Quote, error) {
	quote, err := w.repo.Get(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	from := quote.Status
	if err := w.machine.Transition(quote, to, trigger); err != nil {
		return nil, err
	}
	updated, err := w.repo.UpdateStatus(ctx, quoteID, to)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	w.metrics.transition(from, to, trigger)
	w.logger.Info("quote status changed",
		slog.String("quote_id", quoteID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("trigger", string(trigger)),
	)
	return updated, nil
}

// Session is the result of a successful token verification. Signatures can
// only be submitted through a Session, so verification always comes first.
type Session struct {
	workflow *Workflow
	token    string
	done     bool

	// Email is the recipient the token was issued to.
	Email string
	// Quote is the quote as the signer sees it.
	Quote *quotations.Quote
}

// ProcessSignature records the signer's submission. The token is reserved
// before the backend call, consumed on success and released when the
// failure is retryable.
func (s *Session) ProcessSignature(ctx context.Context, sub Submission) (*quotations.Quote, error) {
	w := s.workflow
	if s.done {
		w.metrics.tokenFailure("reused")
		return nil, fmt.Errorf("%w: already used", shared.ErrInvalidToken)
	}
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Title = strings.TrimSpace(sub.Title)
	if err := shared.ValidateStruct(w.validator, sub); err != nil {
		return nil, err
	}
	inked, err := capture.HasInk(sub.SignatureImage)
	if err != nil {
		return nil, shared.NewValidationError("signature_image", err.Error())
	}
	if !inked {
		return nil, shared.NewValidationError("signature_image", "must contain a drawn signature")
	}

	candidate := s.Quote.Clone()
	from := candidate.Status
	if err := w.machine.Transition(candidate, quotations.StatusAccepted, TriggerSign); err != nil {
		return nil, err
	}

	fp := Fingerprint(s.token)
	if err := w.ledger.Reserve(ctx, s.token); err != nil {
		if errors.Is(err, shared.ErrInvalidToken) {
			w.metrics.tokenFailure("reused")
		}
		return nil, err
	}

	signed, err := w.backend.ProcessSignature(ctx, s.token, sub)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrInvalidToken):
			if cerr := w.ledger.Consume(ctx, s.token); cerr != nil {
				w.logger.Warn("mark rejected token", slog.String("token_fp", fp), slog.Any("error", cerr))
			}
			w.metrics.tokenFailure("rejected")
		default:
			if rerr := w.ledger.Release(ctx, s.token); rerr != nil {
				w.logger.Warn("release token", slog.String("token_fp", fp), slog.Any("error", rerr))
			}
		}
		return nil, fmt.Errorf("process signature: %w", err)
	}
	if err := w.ledger.Consume(ctx, s.token); err != nil {
		w.logger.Warn("consume token", slog.String("token_fp", fp), slog.Any("error", err))
	}

	result := candidate
	if signed != nil {
		result = signed.Clone()
	}
	now := w.now().UTC()
	if result.SignedBy == nil {
		result.SignedBy = &quotations.Signer{
			Name:           sub.Name,
			Title:          sub.Title,
			Email:          sub.Email,
			SignatureImage: sub.SignatureImage,
			SignedAt:       now,
		}
	}
	if result.SignatureDate == nil {
		signedAt := result.SignedBy.SignedAt
		result.SignatureDate = &signedAt
	}
	result.Status = quotations.StatusAccepted
	s.Quote = result
	s.done = true

	w.metrics.transition(from, quotations.StatusAccepted, TriggerSign)
	w.logger.Info("quote signed",
		slog.String("quote_id", result.ID),
		slog.String("token_fp", fp),
	)
	return result.Clone(), nil
}
