// Package report converts HTML documents to PDF through Gotenberg.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

var (
	// ErrTimeout indicates the rendering request exceeded the configured timeout.
	ErrTimeout = errors.New("gotenberg: timeout")
	// ErrInvalidResponse indicates Gotenberg returned a non-success status code.
	ErrInvalidResponse = errors.New("gotenberg: invalid response")
	// ErrTooSmall indicates the generated PDF was below the minimum expected size.
	ErrTooSmall = errors.New("gotenberg: pdf below minimum size")
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 2
	minPDFSize     = 512
)

// Client wraps interactions with the Gotenberg API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	timeout    time.Duration
	minSize    int
}

// NewClient constructs a new client. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("gotenberg endpoint required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retries:    defaultRetries,
		timeout:    timeout,
		minSize:    minPDFSize,
	}, nil
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: gotenberg: %v", shared.ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts raw HTML into a PDF document using Gotenberg. Server
// errors, timeouts and undersized output are retried.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	payload := body.Bytes()
	contentType := writer.FormDataContentType()

	attempts := c.retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		data, retry, err := c.renderOnce(ctx, payload, contentType)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: render pdf after %d attempts: %v", shared.ErrBackend, attempts, lastErr)
}

func (c *Client) renderOnce(ctx context.Context, payload []byte, contentType string) ([]byte, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, classifyNetError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, readErr := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, true, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return nil, false, fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	case readErr != nil:
		return nil, true, readErr
	case len(data) < c.minSize:
		return nil, true, ErrTooSmall
	}
	return data, false, nil
}

func classifyNetError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return err
}
