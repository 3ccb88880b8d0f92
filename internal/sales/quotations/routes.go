package quotations

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/deals", h.List)
	r.Post("/deals", h.Create)
	r.Post("/deals/totals", h.Totals)
	r.Get("/deals/{id}", h.Show)
	r.Put("/deals/{id}", h.Update)
	r.Delete("/deals/{id}", h.Delete)
	r.Put("/deals/{id}/status", h.ChangeStatus)
	r.Put("/deals/{id}/line-items", h.ReplaceLineItems)
	r.Patch("/deals/{id}/line-items", h.EditLineItems)
	r.Post("/quotes/{id}/generate-pdf", h.GeneratePDF)
}
