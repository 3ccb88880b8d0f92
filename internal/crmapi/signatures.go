package crmapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/signature"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

var _ signature.Backend = (*Client)(nil)

func (c *Client) SendSignatureRequest(ctx context.Context, quoteID, recipientEmail, recipientName string) error {
	return c.do(ctx, call{
		op:     "send_signature",
		method: http.MethodPost,
		path:   "/quotes/" + url.PathEscape(quoteID) + "/send-signature",
		body:   sendSignatureWire{RecipientEmail: recipientEmail, RecipientName: recipientName},
	})
}

// VerifySignatureToken is called without credentials; the token is the
// signer's only proof.
func (c *Client) VerifySignatureToken(ctx context.Context, token string) (*signature.Verification, error) {
	if strings.TrimSpace(token) == "" {
		return nil, shared.ErrInvalidToken
	}
	var out verificationWire
	err := c.do(ctx, call{
		op:        "verify_signature",
		method:    http.MethodGet,
		path:      "/quotes/verify-signature/" + url.PathEscape(token),
		out:       &out,
		public:    true,
		tokenPath: true,
	})
	if err != nil {
		return nil, err
	}
	if out.Deal == nil {
		return nil, fmt.Errorf("%w: verification without deal", shared.ErrBackend)
	}
	return &signature.Verification{Email: out.Email, Quote: out.Deal.toDomain()}, nil
}

func (c *Client) ProcessSignature(ctx context.Context, token string, sub signature.Submission) (*quotations.Quote, error) {
	var out processWire
	err := c.do(ctx, call{
		op:     "process_signature",
		method: http.MethodPost,
		path:   "/quotes/process-signature/" + url.PathEscape(token),
		body: submissionWire{
			Name:           sub.Name,
			Email:          sub.Email,
			Title:          sub.Title,
			SignatureImage: sub.SignatureImage,
		},
		out:       &out,
		public:    true,
		tokenPath: true,
	})
	if err != nil {
		return nil, err
	}
	if out.Deal == nil && out.ID == "" {
		// The backend acknowledged without a body.
		return nil, nil
	}
	return out.quote(), nil
}
