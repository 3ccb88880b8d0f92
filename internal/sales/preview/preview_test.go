package preview

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/lineitems"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/pricing"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/signature/capture"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

type stubQuotes map[string]*quotations.Quote

func (s stubQuotes) Get(ctx context.Context, id string) (*quotations.Quote, error) {
	q, ok := s[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return q.Clone(), nil
}

type stubDirectory struct{}

func (stubDirectory) GetCompany(ctx context.Context, id string) (*quotations.Company, error) {
	if id == "acme" {
		return &quotations.Company{ID: id, Name: "Acme & Sons"}, nil
	}
	return nil, shared.ErrNotFound
}

func (stubDirectory) GetContact(ctx context.Context, id string) (*quotations.Contact, error) {
	return nil, shared.ErrNotFound
}

type recordingConverter struct {
	html string
}

func (c *recordingConverter) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	c.html = html
	return []byte("%PDF-1.4 fake"), nil
}

func sampleQuote() *quotations.Quote {
	return &quotations.Quote{
		ID:            "deal-1",
		QuoteNumber:   "Q-0001",
		Name:          "Website <redesign>",
		CompanyID:     "acme",
		Currency:      "USD",
		DiscountType:  pricing.DiscountPercentage,
		DiscountValue: 10,
		TaxRate:       8,
		Status:        quotations.StatusDraft,
		LineItems: []lineitems.Item{
			{Description: "Design", Quantity: 2, UnitPrice: 100, DiscountPercent: 10, TaxPercent: 8, Total: 1},
			{Description: "Hosting", Quantity: 1, UnitPrice: 1000},
		},
	}
}

func TestFormatterMoney(t *testing.T) {
	en := NewFormatter("en-US")
	assert.Equal(t, "USD 194.40", en.Money(194.4, "USD"))
	assert.Equal(t, "USD 1,234.50", en.Money(1234.5, "usd"))
	assert.Equal(t, "JPY 1,235", en.Money(1234.6, "JPY"))

	de := NewFormatter("de-DE")
	assert.Equal(t, "EUR 1.234,50", de.Money(1234.5, "EUR"))

	assert.Equal(t, "en", NewFormatter("not a locale").Locale())
}

func TestFormatterPercentAndQuantity(t *testing.T) {
	f := NewFormatter("en")
	assert.Equal(t, "12.5%", f.Percent(12.5))
	assert.Equal(t, "2", f.Quantity(2))
	assert.Equal(t, "", f.Date(nil))
}

func TestBuildViewRecomputesTotals(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	v := BuildView(sampleQuote(), "Acme & Sons", NewFormatter("en"), now)

	require.Len(t, v.Rows, 2)
	assert.Equal(t, "USD 194.40", v.Rows[0].Total)
	// subtotal 1194.4, discount 119.44, tax (1074.96 * 8%) 86.00
	assert.Equal(t, "USD 1,194.40", v.Subtotal)
	assert.Equal(t, "USD 119.44", v.Discount)
	assert.Equal(t, "Discount (10%)", v.DiscountLabel)
	assert.Equal(t, "Tax (8%)", v.TaxLabel)
	assert.Equal(t, "USD 1,160.96", v.Total)
	assert.Equal(t, "2026-05-04T10:00:00Z", v.GeneratedAt)
}

func TestWriteHTMLEscapesAndFiltersSignature(t *testing.T) {
	pad, err := capture.NewPad(40, 20)
	require.NoError(t, err)
	require.NoError(t, pad.BeginStroke(5, 10))
	require.NoError(t, pad.LineTo(35, 10))
	require.NoError(t, pad.EndStroke())
	sig, err := pad.DataURL()
	require.NoError(t, err)

	q := sampleQuote()
	q.SignedBy = &quotations.Signer{Name: "Ada", Email: "ada@acme.test", SignatureImage: sig, SignedAt: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)}

	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, BuildView(q, "Acme & Sons", NewFormatter("en"), time.Now())))
	html := buf.String()
	assert.Contains(t, html, "Website &lt;redesign&gt;")
	assert.Contains(t, html, "Acme &amp; Sons")
	assert.Contains(t, html, "USD 1,160.96")
	assert.Contains(t, html, `src="data:image/png;base64,`)
	assert.Contains(t, html, "Accepted by Ada on 2026-05-04")

	q.SignedBy.SignatureImage = "javascript:alert(1)"
	buf.Reset()
	require.NoError(t, WriteHTML(&buf, BuildView(q, "Acme", NewFormatter("en"), time.Now())))
	assert.NotContains(t, buf.String(), "javascript:")
}

func TestFPDFRenderer(t *testing.T) {
	v := BuildView(sampleQuote(), "Acme", NewFormatter("en"), time.Now())
	pdf, err := NewFPDFRenderer().Render(context.Background(), v)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestGotenbergRendererSendsPreviewHTML(t *testing.T) {
	conv := &recordingConverter{}
	v := BuildView(sampleQuote(), "Acme", NewFormatter("en"), time.Now())
	pdf, err := NewGotenbergRenderer(conv).Render(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(pdf))
	assert.Contains(t, conv.html, "USD 1,160.96")
}

func TestHandlerRoutes(t *testing.T) {
	svc := NewService(stubQuotes{"deal-1": sampleQuote()}, stubDirectory{}, nil, NewFormatter("en"), nil)
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quotes/deal-1/preview", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Acme &amp; Sons")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quotes/deal-1/preview.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quotes/missing/preview", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
