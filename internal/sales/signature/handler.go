package signature

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// Handler serves the operator signing actions and the public signing link.
type Handler struct {
	logger   *slog.Logger
	workflow *Workflow
}

func NewHandler(logger *slog.Logger, workflow *Workflow) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, workflow: workflow}
}

// VerificationResponse is returned to the signing page.
type VerificationResponse struct {
	Email string            `json:"email"`
	Deal  *quotations.Quote `json:"deal"`
}

func (h *Handler) SendSignature(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondDecodeError(w, err, "must be valid JSON")
		return
	}
	quote, err := h.workflow.SendSignatureRequest(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, "send signature request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	quote, err := h.workflow.Convert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "convert quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	session, err := h.workflow.VerifySignatureToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, "verify signature token", err)
		return
	}
	httpx.JSON(w, http.StatusOK, VerificationResponse{Email: session.Email, Deal: session.Quote})
}

func (h *Handler) ProcessSignature(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	var sub Submission
	if err := httpx.DecodeJSON(r, &sub); err != nil {
		httpx.RespondDecodeError(w, err, "must be valid JSON")
		return
	}
	quote, err := h.workflow.ProcessSignature(r.Context(), chi.URLParam(r, "token"), sub)
	if err != nil {
		h.fail(w, r, "process signature", err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// fail logs without the URL path, which carries the raw token on public routes.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	level := slog.LevelWarn
	if shared.IsRetryable(err) {
		level = slog.LevelError
	}
	attrs := []any{slog.Any("error", err)}
	if token := chi.URLParam(r, "token"); token != "" {
		attrs = append(attrs, slog.String("token_fp", Fingerprint(token)))
	}
	h.logger.Log(r.Context(), level, op+" failed", attrs...)
	httpx.RespondError(w, err)
}
