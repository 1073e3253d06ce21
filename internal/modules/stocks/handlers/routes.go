package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers stock and price routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/search", h.HandleSearch)

		r.Get("/{code}", h.HandleGet)
		r.Put("/{code}", h.HandleUpdate)
		r.Delete("/{code}", h.HandleDelete)
	})

	// Manual price entry
	r.Route("/prices", func(r chi.Router) {
		r.Get("/current", h.HandleCurrentPrices)
		r.Get("/{code}", h.HandleGetPrice)
		r.Put("/{code}", h.HandleSetPrice)
	})
}
