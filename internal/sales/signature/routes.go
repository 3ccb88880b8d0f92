package signature

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the operator actions.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/quotes/{id}/send-signature", h.SendSignature)
	r.Post("/deals/{id}/convert", h.Convert)
}

// MountPublicRoutes registers the unauthenticated signing link endpoints.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/quotes/verify-signature/{token}", h.VerifyToken)
	r.Post("/quotes/process-signature/{token}", h.ProcessSignature)
}
