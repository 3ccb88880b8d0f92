package quotations

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

func newTestRouter(t *testing.T, repo *mockRepository) http.Handler {
	t.Helper()
	svc := NewService(repo, newMockDirectory(), &allowAll{}, nil, nil)
	r := chi.NewRouter()
	NewHandler(nil, svc).MountRoutes(r)
	return r
}

func TestHandlerCreateAndShow(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(t, repo)

	body := `{"name":"Website","company_id":"acme","line_items":[{"description":"Design","quantity":2,"unit_price":100,"discount_percent":10,"tax_percent":8}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/deals", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.InDelta(t, 194.4, created.TotalAmount, 1e-9)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deals/"+created.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"draft"`)
}

func TestHandlerCreateValidationProblem(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(t, repo)

	body := `{"name":"Website","company_id":"acme","line_items":[{"description":"","quantity":1}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/deals", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "is required", problem.Fields["line_items.0.description"])
	assert.Zero(t, repo.creates)
}

func TestHandlerNotFound(t *testing.T) {
	router := newTestRouter(t, newMockRepository())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deals/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerTotals(t *testing.T) {
	router := newTestRouter(t, newMockRepository())
	body := `{"line_items":[{"description":"a","quantity":1,"unit_price":300},{"description":"b","quantity":1,"unit_price":200}],"discount_type":"fixed","discount_value":50}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/deals/totals", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var res TotalsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.InDelta(t, 500, res.Subtotal, 1e-9)
	assert.InDelta(t, 450, res.TotalAmount, 1e-9)
}

func TestHandlerEditLineItemsLocked(t *testing.T) {
	repo := newMockRepository()
	q := draftQuote()
	q.Status = StatusAccepted
	repo.put(q)
	router := newTestRouter(t, repo)

	body := `{"operations":[{"op":"add"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/deals/deal-7/line-items", strings.NewReader(body)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerReplaceLineItemsUnchanged(t *testing.T) {
	repo := newMockRepository()
	repo.put(draftQuote())
	router := newTestRouter(t, repo)

	body := `[{"description":"Support","quantity":10,"unit_price":100}]`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/deals/deal-7/line-items", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var res EditLineItemsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Changed)
	assert.Zero(t, repo.updates)
}

func TestHandlerChangeStatusAndPDF(t *testing.T) {
	repo := newMockRepository()
	repo.put(draftQuote())
	router := newTestRouter(t, repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/deals/deal-7/status", strings.NewReader(`{"status":"accepted"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"accepted"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/deals/deal-7/status", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quotes/deal-7/generate-pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deal-7.pdf")
}
