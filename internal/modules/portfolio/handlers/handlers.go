// Package handlers provides HTTP handlers for portfolio reports.
package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/httpjson"
	"github.com/aristath/stockledger/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleSummary handles GET /api/portfolio/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, summary)
}

// HandleAnalysis handles GET /api/portfolio/analysis
func (h *Handler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Analysis(r.Context())
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, analysis)
}

// HandleConcentration handles GET /api/portfolio/concentration
func (h *Handler) HandleConcentration(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Concentration(r.Context())
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, c)
}

// HandlePerformance handles GET /api/portfolio/performance?period=1y
func (h *Handler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Performance(r.Context(), httpjson.QueryString(r, "period"))
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, report)
}

// HandleDividendAnalysis handles GET /api/portfolio/dividend-analysis?year=2024
func (h *Handler) HandleDividendAnalysis(w http.ResponseWriter, r *http.Request) {
	year := httpjson.QueryInt(r, "year", h.service.Now().Year())
	report, err := h.service.DividendAnalysis(r.Context(), year)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, report)
}
