package preview

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// Handler serves quote previews.
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

// MountRoutes registers preview routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/quotes/{id}/preview", h.HTML)
	r.Get("/quotes/{id}/preview.pdf", h.PDF)
}

func (h *Handler) HTML(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "load quote preview", err)
		return
	}
	var buf bytes.Buffer
	if err := WriteHTML(&buf, v); err != nil {
		h.fail(w, r, "render quote preview", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pdf, err := h.service.PDF(r.Context(), id)
	if err != nil {
		h.fail(w, r, "render quote pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote("quote-"+id+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	level := slog.LevelWarn
	if shared.IsRetryable(err) {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, op+" failed", slog.String("quote_id", chi.URLParam(r, "id")), slog.Any("error", err))
	httpx.RespondError(w, err)
}
