package crmapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

var _ quotations.Repository = (*Client)(nil)

func dealPath(id string) string {
	return "/deals/" + url.PathEscape(id)
}

func (c *Client) Get(ctx context.Context, id string) (*quotations.Quote, error) {
	var out dealWire
	if err := c.do(ctx, call{op: "get_deal", method: http.MethodGet, path: dealPath(id), out: &out}); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) List(ctx context.Context, req quotations.ListQuotesRequest) ([]quotations.Quote, error) {
	query := url.Values{}
	if req.CompanyID != "" {
		query.Set("companyId", req.CompanyID)
	}
	if req.Status != nil {
		query.Set("status", string(*req.Status))
	}
	if req.Stage != nil {
		query.Set("stage", string(*req.Stage))
	}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		query.Set("offset", strconv.Itoa(req.Offset))
	}

	var out []dealWire
	if err := c.do(ctx, call{op: "list_deals", method: http.MethodGet, path: "/deals", query: query, out: &out}); err != nil {
		return nil, err
	}
	quotes := make([]quotations.Quote, 0, len(out))
	for i := range out {
		quotes = append(quotes, *out[i].toDomain())
	}
	return quotes, nil
}

func (c *Client) Create(ctx context.Context, quote quotations.Quote) (*quotations.Quote, error) {
	body := toWire(quote)
	body.ID = ""
	var out dealWire
	if err := c.do(ctx, call{op: "create_deal", method: http.MethodPost, path: "/deals", body: body, out: &out}); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) Update(ctx context.Context, quote quotations.Quote) (*quotations.Quote, error) {
	if quote.ID == "" {
		return nil, shared.NewValidationError("id", "is required")
	}
	var out dealWire
	if err := c.do(ctx, call{op: "update_deal", method: http.MethodPut, path: dealPath(quote.ID), body: toWire(quote), out: &out}); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "delete_deal", method: http.MethodDelete, path: dealPath(id)})
}

func (c *Client) UpdateStatus(ctx context.Context, id string, status quotations.Status) (*quotations.Quote, error) {
	var out dealWire
	err := c.do(ctx, call{
		op:     "update_status",
		method: http.MethodPut,
		path:   dealPath(id) + "/status",
		body:   statusWire{Status: string(status)},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		// Some backends answer with an empty body; read the deal back.
		return c.Get(ctx, id)
	}
	return out.toDomain(), nil
}

func (c *Client) GeneratePDF(ctx context.Context, id string) (string, error) {
	var out pdfWire
	if err := c.do(ctx, call{op: "generate_pdf", method: http.MethodPost, path: "/quotes/" + url.PathEscape(id) + "/generate-pdf", out: &out}); err != nil {
		return "", err
	}
	if out.PdfURL == "" {
		return "", fmt.Errorf("%w: generate pdf: empty pdfUrl", shared.ErrBackend)
	}
	return out.PdfURL, nil
}

// Ping reports whether the backend answers at all. Any HTTP answer counts.
func (c *Client) Ping(ctx context.Context) error {
	err := c.do(ctx, call{op: "ping", method: http.MethodGet, path: "/deals", query: url.Values{"limit": {"1"}}, public: true})
	if err == nil || errors.Is(err, shared.ErrNetwork) || errors.Is(err, shared.ErrBackend) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
