package quotations

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/lineitems"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// Handler exposes the quote aggregate over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListQuotesRequest{
		CompanyID: q.Get("company_id"),
		Limit:     atoiDefault(q.Get("limit"), 50),
		Offset:    atoiDefault(q.Get("offset"), 0),
	}
	if status := q.Get("status"); status != "" {
		s := Status(status)
		req.Status = &s
	}
	if stage := q.Get("stage"); stage != "" {
		s := Stage(stage)
		req.Stage = &s
	}

	quotes, err := h.service.List(r.Context(), req)
	if err != nil {
		h.fail(w, r, "list quotes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": quotes})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondDecodeError(w, err, "must be valid JSON")
		return
	}
	quote, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, "create quote", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondDecodeError(w, err, "must be valid JSON")
		return
	}
	quote, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, "update quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete quote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req ChangeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondDecodeError(w, err, "must be valid JSON")
		return
	}
	if req.Status == "" {
		httpx.RespondError(w, shared.NewValidationError("status", "is required"))
		return
	}
	quote, err := h.service.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, "change status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) ReplaceLineItems(w http.ResponseWriter, r *http.Request) {
	var items []lineitems.Item
	if err := httpx.DecodeJSON(r, &items); err != nil {
		httpx.RespondDecodeError(w, err, "must be a JSON array of line items")
		return
	}
	quote, changed, err := h.service.UpdateLineItems(r.Context(), chi.URLParam(r, "id"), items)
	if err != nil {
		h.fail(w, r, "replace line items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, EditLineItemsResponse{Quote: quote, Changed: changed})
}

func (h *Handler) EditLineItems(w http.ResponseWriter, r *http.Request) {
	var req EditLineItemsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondDecodeError(w, err, "must be valid JSON")
		return
	}
	quote, changed, err := h.service.EditLineItems(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, "edit line items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, EditLineItemsResponse{Quote: quote, Changed: changed})
}

func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	var req TotalsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondDecodeError(w, err, "must be valid JSON")
		return
	}
	res, err := h.service.Totals(req)
	if err != nil {
		h.fail(w, r, "compute totals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) GeneratePDF(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.GeneratePDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "generate pdf", err)
		return
	}
	httpx.JSON(w, http.StatusOK, GeneratePDFResponse{PdfURL: url})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	level := slog.LevelWarn
	if shared.IsRetryable(err) {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, op+" failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	httpx.RespondError(w, err)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
