// Package dividends records dividend receipts and aggregates them into
// per-currency, per-stock and monthly statistics. Dividends never touch positions.
package dividends

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
)

// Dividend is one recorded dividend payment
type Dividend struct {
	ID               int64           `json:"id"`
	StockCode        string          `json:"stock_code"`
	Date             string          `json:"dividend_date"` // YYYY-MM-DD
	DividendPerShare decimal.Decimal `json:"dividend_per_share"`
	TotalDividend    decimal.Decimal `json:"total_dividend"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	NetDividend      decimal.Decimal `json:"net_dividend"` // total - tax
	Currency         domain.Currency `json:"currency"`
	Notes            string          `json:"notes"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Month is the YYYY-MM bucket of the payment date
func (d *Dividend) Month() string {
	if len(d.Date) < 7 {
		return d.Date
	}
	return d.Date[:7]
}

// CreateInput carries the fields of a new dividend
type CreateInput struct {
	StockCode        string           `json:"stock_code"`
	Date             string           `json:"dividend_date"`
	DividendPerShare decimal.Decimal  `json:"dividend_per_share"`
	TotalDividend    decimal.Decimal  `json:"total_dividend"`
	TaxAmount        *decimal.Decimal `json:"tax_amount"`
	Currency         domain.Currency  `json:"currency"`
	Notes            *string          `json:"notes"`
}

// UpdateInput carries the fields to change; nil fields keep their value
type UpdateInput struct {
	StockCode        *string          `json:"stock_code"`
	Date             *string          `json:"dividend_date"`
	DividendPerShare *decimal.Decimal `json:"dividend_per_share"`
	TotalDividend    *decimal.Decimal `json:"total_dividend"`
	TaxAmount        *decimal.Decimal `json:"tax_amount"`
	Currency         *domain.Currency `json:"currency"`
	Notes            *string          `json:"notes"`
}

// ListFilter narrows a dividend listing
type ListFilter struct {
	StockCode string
	StartDate string
	EndDate   string
	Currency  string
	Page      int
	PerPage   int
}

// Totals is a count with gross, tax and net sums
type Totals struct {
	Count int             `json:"count"`
	Gross decimal.Decimal `json:"total_dividend"`
	Tax   decimal.Decimal `json:"total_tax"`
	Net   decimal.Decimal `json:"net_dividend"`
}

func (t *Totals) add(d *Dividend) {
	t.Count++
	t.Gross = t.Gross.Add(d.TotalDividend)
	t.Tax = t.Tax.Add(d.TaxAmount)
	t.Net = t.Net.Add(d.NetDividend)
}

// StockTotals is Totals for one stock
type StockTotals struct {
	StockCode string `json:"stock_code"`
	Totals
}

// MonthTotals is Totals for one YYYY-MM month
type MonthTotals struct {
	Month string `json:"month"`
	Totals
}

// Stats aggregates a set of dividends
type Stats struct {
	TotalRecords int                         `json:"total_records"`
	TotalGross   decimal.Decimal             `json:"total_dividend"`
	TotalTax     decimal.Decimal             `json:"total_tax"`
	TotalNet     decimal.Decimal             `json:"net_dividend"`
	ByCurrency   map[domain.Currency]*Totals `json:"by_currency"`
	ByStock      []StockTotals               `json:"by_stock"`
	MonthlyTrend []MonthTotals               `json:"monthly_trend"`
}

// Annual summarizes one stock's dividends for a calendar year
type Annual struct {
	StockCode           string          `json:"stock_code"`
	Year                int             `json:"year"`
	DividendCount       int             `json:"dividend_count"`
	TotalDividend       decimal.Decimal `json:"total_dividend"`
	TotalNetDividend    decimal.Decimal `json:"total_net_dividend"`
	AvgDividendPerShare decimal.Decimal `json:"avg_dividend_per_share"`
}
