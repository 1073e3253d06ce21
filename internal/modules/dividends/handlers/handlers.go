// Package handlers provides HTTP handlers for dividend operations.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/httpjson"
	"github.com/aristath/stockledger/internal/modules/dividends"
)

// Handler handles dividend HTTP requests
type Handler struct {
	service *dividends.Service
	log     zerolog.Logger
}

// NewHandler creates a new dividend handler
func NewHandler(service *dividends.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "dividends").Logger(),
	}
}

// DividendResponse adds formatted amounts to a dividend
type DividendResponse struct {
	*dividends.Dividend
	NetDisplay   string `json:"net_dividend_display"`
	GrossDisplay string `json:"total_dividend_display"`
}

func toResponse(d *dividends.Dividend) DividendResponse {
	return DividendResponse{
		Dividend:     d,
		NetDisplay:   httpjson.Money(d.NetDividend, d.Currency),
		GrossDisplay: httpjson.Money(d.TotalDividend, d.Currency),
	}
}

func filterFrom(r *http.Request) dividends.ListFilter {
	return dividends.ListFilter{
		StockCode: httpjson.QueryString(r, "stock_code"),
		StartDate: httpjson.QueryString(r, "start_date"),
		EndDate:   httpjson.QueryString(r, "end_date"),
		Currency:  httpjson.QueryString(r, "currency"),
		Page:      httpjson.QueryInt(r, "page", 1),
		PerPage:   httpjson.QueryInt(r, "per_page", 20),
	}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("invalid dividend id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// HandleList handles GET /api/dividends
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	divs, page, err := h.service.List(r.Context(), filterFrom(r))
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	items := make([]DividendResponse, len(divs))
	for i := range divs {
		items[i] = toResponse(&divs[i])
	}
	httpjson.Page(w, items, page)
}

// HandleStats handles GET /api/dividends/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), filterFrom(r))
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, stats)
}

// HandleAnnual handles GET /api/dividends/annual?stock_code=&year=
func (h *Handler) HandleAnnual(w http.ResponseWriter, r *http.Request) {
	year := httpjson.QueryInt(r, "year", time.Now().Year())
	summary, err := h.service.Annual(r.Context(), httpjson.QueryString(r, "stock_code"), year)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, summary)
}

// HandleGet handles GET /api/dividends/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, toResponse(d))
}

// HandleCreate handles POST /api/dividends
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req dividends.CreateInput
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	d, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.Created(w, toResponse(d), "dividend recorded")
}

// HandleUpdate handles PUT /api/dividends/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	var req dividends.UpdateInput
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	d, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, toResponse(d))
}

// HandleDelete handles DELETE /api/dividends/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.Message(w, "dividend deleted")
}
