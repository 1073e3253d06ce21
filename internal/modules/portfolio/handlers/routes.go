package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers portfolio report routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/summary", h.HandleSummary)
		r.Get("/analysis", h.HandleAnalysis)
		r.Get("/concentration", h.HandleConcentration)
		r.Get("/performance", h.HandlePerformance)
		r.Get("/dividend-analysis", h.HandleDividendAnalysis)
	})
}
