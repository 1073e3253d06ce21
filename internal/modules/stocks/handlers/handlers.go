// Package handlers provides HTTP handlers for stock and price operations.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/httpjson"
	"github.com/aristath/stockledger/internal/modules/stocks"
)

// Handler handles stock HTTP requests
type Handler struct {
	service *stocks.Service
	log     zerolog.Logger
}

// NewHandler creates a new stock handler
func NewHandler(service *stocks.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "stocks").Logger(),
	}
}

// StockResponse is the API view of a stock and its position
type StockResponse struct {
	*stocks.Stock
	TotalShares float64 `json:"total_shares"`
	AvgCost     float64 `json:"avg_cost"`
	MarketValue float64 `json:"market_value"`
	CostValue   float64 `json:"cost_value"`
}

// DetailResponse adds history counts and unrealized P&L
type DetailResponse struct {
	StockResponse
	TransactionCount int     `json:"transaction_count"`
	DividendCount    int     `json:"dividend_count"`
	ProfitLoss       float64 `json:"profit_loss"`
	ProfitLossRate   float64 `json:"profit_loss_rate"`
}

// PriceRequest sets a manual price
type PriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

func toResponse(s *stocks.Stock) StockResponse {
	return StockResponse{
		Stock:       s,
		TotalShares: httpjson.Float(s.TotalShares()),
		AvgCost:     s.AvgCost().Round(4).InexactFloat64(),
		MarketValue: httpjson.Round2(s.MarketValue()),
		CostValue:   httpjson.Round2(s.CostValue()),
	}
}

func toResponses(list []stocks.Stock) []StockResponse {
	out := make([]StockResponse, len(list))
	for i := range list {
		out[i] = toResponse(&list[i])
	}
	return out
}

// HandleList handles GET /api/stocks
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, page, err := h.service.List(r.Context(), stocks.ListFilter{
		Market:  domain.Market(httpjson.QueryString(r, "market")),
		Search:  httpjson.QueryString(r, "search"),
		Page:    httpjson.QueryInt(r, "page", 1),
		PerPage: httpjson.QueryInt(r, "per_page", 20),
	})
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.Page(w, toResponses(items), page)
}

// HandleSearch handles GET /api/stocks/search
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Search(r.Context(), httpjson.QueryString(r, "q"), httpjson.QueryInt(r, "limit", 10))
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	results := make([]map[string]interface{}, len(items))
	for i, s := range items {
		results[i] = map[string]interface{}{
			"stock_code": s.Code,
			"stock_name": s.Name,
			"market":     s.Market,
		}
	}
	httpjson.OK(w, results)
}

// HandleGet handles GET /api/stocks/{code}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Detail(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	httpjson.OK(w, DetailResponse{
		StockResponse:    toResponse(&detail.Stock),
		TransactionCount: detail.TransactionCount,
		DividendCount:    detail.DividendCount,
		ProfitLoss:       httpjson.Round2(detail.ProfitLoss()),
		ProfitLossRate:   httpjson.Round2(detail.ProfitLossRate()),
	})
}

// HandleCreate handles POST /api/stocks
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req stocks.CreateInput
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	stock, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.Created(w, toResponse(stock), "stock created")
}

// HandleUpdate handles PUT /api/stocks/{code}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req stocks.UpdateInput
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	stock, err := h.service.Update(r.Context(), chi.URLParam(r, "code"), req)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, toResponse(stock))
}

// HandleDelete handles DELETE /api/stocks/{code}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.Message(w, "stock deleted")
}

// HandleCurrentPrices handles GET /api/prices/current.
// Prices are entered manually; there is no live feed behind this endpoint.
func (h *Handler) HandleCurrentPrices(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.Repository().ListAll(r.Context())
	if err != nil {
		httpjson.Error(w, h.log, domain.Store(err, "failed to list prices"))
		return
	}

	prices := make([]map[string]interface{}, len(all))
	for i := range all {
		prices[i] = priceView(&all[i])
	}
	httpjson.OK(w, prices)
}

// HandleGetPrice handles GET /api/prices/{code}
func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	stock, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, priceView(stock))
}

// HandleSetPrice handles PUT /api/prices/{code}
func (h *Handler) HandleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.log, err)
		return
	}

	stock, err := h.service.SetPrice(r.Context(), chi.URLParam(r, "code"), req.Price)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, priceView(stock))
}

func priceView(s *stocks.Stock) map[string]interface{} {
	return map[string]interface{}{
		"stock_code":        s.Code,
		"stock_name":        s.Name,
		"current_price":     s.CurrentPrice,
		"currency":          s.Currency,
		"price_update_time": s.PriceUpdatedAt,
	}
}
