package preview

import (
	"context"
	"log/slog"
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
)

// QuoteSource loads the quote to print.
type QuoteSource interface {
	Get(ctx context.Context, id string) (*quotations.Quote, error)
}

// Service builds quote previews.
type Service struct {
	quotes    QuoteSource
	directory quotations.Directory
	renderer  Renderer
	formatter *Formatter
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(quotes QuoteSource, directory quotations.Directory, renderer Renderer, formatter *Formatter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if formatter == nil {
		formatter = NewFormatter("en")
	}
	if renderer == nil {
		renderer = NewFPDFRenderer()
	}
	return &Service{
		quotes:    quotes,
		directory: directory,
		renderer:  renderer,
		formatter: formatter,
		logger:    logger,
		now:       time.Now,
	}
}

// View loads and formats a quote.
func (s *Service) View(ctx context.Context, id string) (View, error) {
	quote, err := s.quotes.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return BuildView(quote, s.companyName(ctx, quote.CompanyID), s.formatter, s.now()), nil
}

// PDF renders the quote document.
func (s *Service) PDF(ctx context.Context, id string) ([]byte, error) {
	v, err := s.View(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(ctx, v)
}

// companyName prints the company id when the directory is unavailable.
func (s *Service) companyName(ctx context.Context, id string) string {
	if s.directory == nil || id == "" {
		return id
	}
	company, err := s.directory.GetCompany(ctx, id)
	if err != nil {
		s.logger.Warn("preview company lookup failed", slog.String("company_id", id), slog.Any("error", err))
		return id
	}
	return company.Name
}
