// Package crmapi talks to the CRM backend that stores deals and issues
// signature tokens. It is the only code that knows the backend's wire format.
package crmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

const maxErrorBody = 64 << 10

// Config configures the backend client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// ServiceToken authenticates calls made outside a user request, such as
	// the expiry sweep. A token in the request context takes precedence.
	ServiceToken string
	// Observer receives per-call timings. Optional.
	Observer Observer
}

// Observer records backend call outcomes. observability.Metrics implements it.
type Observer interface {
	ObserveBackend(operation, outcome string, elapsed time.Duration)
}

// Client is an HTTP client for the CRM REST API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	serviceToken string
	observer     Observer
	logger       *slog.Logger
}

// NewClient constructs a new client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("crmapi: base url required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("crmapi: parse base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:      base,
		httpClient:   &http.Client{Timeout: timeout},
		serviceToken: cfg.ServiceToken,
		observer:     cfg.Observer,
		logger:       logger,
	}, nil
}

type bearerKey struct{}

// WithBearerToken stores the caller's token for outbound authenticated calls.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

// BearerToken returns the token stored by WithBearerToken.
func BearerToken(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

// ForwardAuthorization copies the bearer token of incoming requests into the
// request context.
func ForwardAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && strings.TrimSpace(token) != "" {
			r = r.WithContext(WithBearerToken(r.Context(), strings.TrimSpace(token)))
		}
		next.ServeHTTP(w, r)
	})
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	out    any
	public bool
	// tokenPath marks the signature link endpoints where 404, 409 and 410
	// mean the token is no longer usable.
	tokenPath bool
}

func (c *Client) do(ctx context.Context, cl call) (err error) {
	if c.observer != nil {
		start := time.Now()
		defer func() {
			c.observer.ObserveBackend(cl.op, outcome(err), time.Since(start))
		}()
	}

	endpoint := c.baseURL + cl.path
	if len(cl.query) > 0 {
		endpoint += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", cl.method, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !cl.public {
		if token := c.token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return fmt.Errorf("%w: %s %s: %w", shared.ErrNetwork, cl.method, cl.path, ctx.Err())
		case ctx.Err() != nil:
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", shared.ErrNetwork, cl.method, cl.path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return c.classify(resp, cl)
	}
	if cl.out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", shared.ErrBackend, cl.method, cl.path, err)
	}
	return nil
}

func (c *Client) token(ctx context.Context) string {
	if token := BearerToken(ctx); token != "" {
		return token
	}
	return c.serviceToken
}

func (c *Client) classify(resp *http.Response, cl call) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload errorBody
	_ = json.Unmarshal(raw, &payload)
	msg := payload.text()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	status := resp.StatusCode
	switch {
	case cl.tokenPath && (status == http.StatusNotFound || status == http.StatusGone || status == http.StatusConflict || status == http.StatusBadRequest):
		return fmt.Errorf("%w: %s", shared.ErrInvalidToken, msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		verr := &shared.ValidationError{}
		for field, message := range payload.Errors {
			verr.Add(snakeCase(field), message)
		}
		if verr.Empty() {
			verr.Add("body", msg)
		}
		return verr
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrUnauthorized, msg)
	case status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrForbidden, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, cl.method, cl.path)
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s", shared.ErrConflict, msg)
	case status >= 500:
		c.logger.Warn("crm backend error", slog.String("method", cl.method), slog.String("path", logPath(cl)), slog.Int("status", status))
		return fmt.Errorf("%w: %s %s returned %d: %s", shared.ErrBackend, cl.method, logPath(cl), status, msg)
	default:
		return fmt.Errorf("%w: %s %s returned %d: %s", shared.ErrBackend, cl.method, logPath(cl), status, msg)
	}
}

func outcome(err error) string {
	var verr *shared.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr), errors.Is(err, shared.ErrValidation):
		return "validation"
	case errors.Is(err, shared.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrConflict):
		return "conflict"
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrForbidden):
		return "denied"
	case errors.Is(err, shared.ErrNetwork):
		return "network"
	case errors.Is(err, shared.ErrBackend):
		return "backend"
	default:
		return "error"
	}
}

// logPath hides the token segment of signature link paths.
func logPath(cl call) string {
	if !cl.tokenPath {
		return cl.path
	}
	if i := strings.LastIndex(cl.path, "/"); i >= 0 {
		return cl.path[:i] + "/{token}"
	}
	return cl.path
}

type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func (b errorBody) text() string {
	if b.Message != "" {
		return b.Message
	}
	return b.Error
}

// snakeCase maps backend field names such as lineItems.0.unitPrice onto the
// names this service reports.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '.' {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
