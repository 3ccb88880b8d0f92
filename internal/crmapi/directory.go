package crmapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
)

var _ quotations.Directory = (*Client)(nil)

func (c *Client) GetCompany(ctx context.Context, id string) (*quotations.Company, error) {
	var out companyWire
	if err := c.do(ctx, call{op: "get_company", method: http.MethodGet, path: "/companies/" + url.PathEscape(id), out: &out}); err != nil {
		return nil, err
	}
	return &quotations.Company{ID: out.ID, Name: out.Name}, nil
}

func (c *Client) GetContact(ctx context.Context, id string) (*quotations.Contact, error) {
	var out contactWire
	if err := c.do(ctx, call{op: "get_contact", method: http.MethodGet, path: "/contacts/" + url.PathEscape(id), out: &out}); err != nil {
		return nil, err
	}
	return &quotations.Contact{ID: out.ID, CompanyID: out.CompanyID, Name: out.Name, Email: out.Email}, nil
}
