package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers dividend routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dividends", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/stats", h.HandleStats)
		r.Get("/annual", h.HandleAnnual)

		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}
