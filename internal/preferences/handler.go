// Package preferences exposes the operator settings store over HTTP.
package preferences

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
)

// Known keys and the rule their values must satisfy.
var rules = map[string]string{
	"quote.default_currency": "required,iso4217",
	"quote.default_tax_rate": "gte=0,lte=100",
	"ui.theme":               "required,oneof=light dark system",
	"ui.locale":              "required,bcp47_language_tag",
}

// Entry is the wire form of a single preference.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Handler struct {
	logger    *slog.Logger
	store     shared.Preferences
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, store shared.Preferences) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store, validator: shared.NewValidator()}
}

// MountRoutes registers preference routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/preferences", func(r chi.Router) {
		r.Get("/{key}", h.get)
		r.Put("/{key}", h.put)
		r.Delete("/{key}", h.clear)
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	key, err := knownKey(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	value, ok, err := h.store.Get(r.Context(), key)
	if err != nil {
		h.fail(w, r, key, err)
		return
	}
	if !ok {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, Entry{Key: key, Value: value})
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	key, err := knownKey(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body struct {
		Value string `json:"value"`
	}
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondDecodeError(w, err, "must be valid JSON")
		return
	}
	value := strings.TrimSpace(body.Value)
	if key == "quote.default_currency" {
		value = strings.ToUpper(value)
	}
	if err := h.check(key, value); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.store.Set(r.Context(), key, value); err != nil {
		h.fail(w, r, key, err)
		return
	}
	httpx.JSON(w, http.StatusOK, Entry{Key: key, Value: value})
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	key, err := knownKey(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.store.Clear(r.Context(), key); err != nil {
		h.fail(w, r, key, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) check(key, value string) error {
	rule := rules[key]
	if key == "quote.default_tax_rate" {
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return shared.NewValidationError("value", "must be a number")
		}
		if h.validator.Var(rate, rule) != nil {
			return shared.NewValidationError("value", "must be between 0 and 100")
		}
		return nil
	}
	if err := h.validator.Var(value, rule); err != nil {
		return shared.NewValidationError("value", "is not a valid "+key)
	}
	return nil
}

func knownKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "key")
	if _, ok := rules[key]; !ok {
		return "", shared.NewValidationError("key", "is not a known preference")
	}
	return key, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, key string, err error) {
	h.logger.Error("preference store failed", slog.String("key", key), slog.Any("error", err))
	httpx.RespondError(w, err)
}
