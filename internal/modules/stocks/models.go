// Package stocks manages the securities tracked by the ledger and the
// positions maintained on them.
package stocks

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/positions"
)

// Stock is a tracked security together with its maintained position
type Stock struct {
	Code           string             `json:"stock_code"`
	Name           string             `json:"stock_name"`
	Market         domain.Market      `json:"market"`
	Currency       domain.Currency    `json:"currency"`
	Sector         string             `json:"sector,omitempty"`
	CurrentPrice   decimal.Decimal    `json:"current_price"`
	PriceUpdatedAt *time.Time         `json:"price_update_time,omitempty"`
	Position       positions.Position `json:"-"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// TotalShares is the current holding
func (s *Stock) TotalShares() decimal.Decimal {
	return s.Position.Shares()
}

// AvgCost is the weighted-average buy cost including commission
func (s *Stock) AvgCost() decimal.Decimal {
	return s.Position.AvgCost()
}

// ValuationPrice is the manual price when set, otherwise the average cost.
// Without a price feed this keeps unpriced holdings valued at cost.
func (s *Stock) ValuationPrice() decimal.Decimal {
	if s.CurrentPrice.IsPositive() {
		return s.CurrentPrice
	}
	return s.AvgCost()
}

// MarketValue is ValuationPrice times shares held
func (s *Stock) MarketValue() decimal.Decimal {
	return s.ValuationPrice().Mul(s.TotalShares())
}

// CostValue is average cost times shares held
func (s *Stock) CostValue() decimal.Decimal {
	return s.AvgCost().Mul(s.TotalShares())
}

// SectorOrDefault groups stocks without a sector under "Other"
func (s *Stock) SectorOrDefault() string {
	if strings.TrimSpace(s.Sector) == "" {
		return "Other"
	}
	return s.Sector
}

// Detail adds history counts and valuation to a stock
type Detail struct {
	Stock
	TransactionCount int
	DividendCount    int
}

// ProfitLoss is unrealized P&L on the current holding
func (d *Detail) ProfitLoss() decimal.Decimal {
	return d.MarketValue().Sub(d.CostValue())
}

// ProfitLossRate is ProfitLoss as a percentage of cost, 0 when nothing is held
func (d *Detail) ProfitLossRate() decimal.Decimal {
	cost := d.CostValue()
	if cost.IsZero() {
		return decimal.Zero
	}
	return d.ProfitLoss().Div(cost).Mul(decimal.NewFromInt(100))
}

// CreateInput carries the fields of a new stock
type CreateInput struct {
	Code         string           `json:"stock_code"`
	Name         string           `json:"stock_name"`
	Market       domain.Market    `json:"market"`
	Currency     domain.Currency  `json:"currency"`
	Sector       string           `json:"sector"`
	CurrentPrice *decimal.Decimal `json:"current_price"`
}

// UpdateInput carries the fields to change; nil fields are left as they are
type UpdateInput struct {
	Name         *string          `json:"stock_name"`
	Market       *domain.Market   `json:"market"`
	Currency     *domain.Currency `json:"currency"`
	Sector       *string          `json:"sector"`
	CurrentPrice *decimal.Decimal `json:"current_price"`
}

// ListFilter narrows a stock listing
type ListFilter struct {
	Market  domain.Market
	Search  string
	Page    int
	PerPage int
}
