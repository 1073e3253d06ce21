// Package handlers provides HTTP handlers for transaction operations.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/httpjson"
	"github.com/aristath/stockledger/internal/modules/transactions"
)

// Handler handles transaction HTTP requests
type Handler struct {
	service *transactions.Service
	log     zerolog.Logger
}

// NewHandler creates a new transaction handler
func NewHandler(service *transactions.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "transactions").Logger(),
	}
}

// TransactionResponse adds the cash effect to a transaction
type TransactionResponse struct {
	*transactions.Transaction
	NetAmount float64 `json:"net_amount"`
}

func toResponse(t *transactions.Transaction) TransactionResponse {
	return TransactionResponse{Transaction: t, NetAmount: httpjson.Round2(t.NetAmount())}
}

func filterFrom(r *http.Request) transactions.ListFilter {
	return transactions.ListFilter{
		StockCode: httpjson.QueryString(r, "stock_code"),
		Type:      httpjson.QueryString(r, "transaction_type"),
		StartDate: httpjson.QueryString(r, "start_date"),
		EndDate:   httpjson.QueryString(r, "end_date"),
		Page:      httpjson.QueryInt(r, "page", 1),
		PerPage:   httpjson.QueryInt(r, "per_page", 20),
	}
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("invalid transaction id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// HandleList handles GET /api/transactions
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	txs, page, err := h.service.List(r.Context(), filterFrom(r))
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	items := make([]TransactionResponse, len(txs))
	for i := range txs {
		items[i] = toResponse(&txs[i])
	}
	httpjson.Page(w, items, page)
}

// HandleStats handles GET /api/transactions/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), filterFrom(r))
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, stats)
}

// HandleGet handles GET /api/transactions/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, toResponse(t))
}

// HandleCreate handles POST /api/transactions
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req transactions.CreateInput
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	t, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.Created(w, toResponse(t), "transaction recorded")
}

// HandleUpdate handles PUT /api/transactions/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	var req transactions.UpdateInput
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	t, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, toResponse(t))
}

// HandleDelete handles DELETE /api/transactions/{id}
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
	httpjson.Message(w, "transaction deleted")
}
