// Package portfolio values current holdings and derives allocation,
// concentration, performance and dividend reports from the ledger.
package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
)

// Holding is one stock with a positive position, valued
type Holding struct {
	StockCode        string          `json:"stock_code"`
	StockName        string          `json:"stock_name"`
	Market           domain.Market   `json:"market"`
	Sector           string          `json:"sector"`
	Currency         domain.Currency `json:"currency"`
	Shares           decimal.Decimal `json:"shares"`
	AvgCost          decimal.Decimal `json:"avg_cost"`
	CurrentPrice     decimal.Decimal `json:"current_price"` // manual price, or avg cost when unpriced
	CostValue        decimal.Decimal `json:"cost_value"`
	MarketValue      decimal.Decimal `json:"market_value"`
	UnrealizedPnL    decimal.Decimal `json:"unrealized_pnl"`
	UnrealizedPnLPct decimal.Decimal `json:"unrealized_pnl_pct"`
	DividendReceived decimal.Decimal `json:"dividend_received"`
	Weight           decimal.Decimal `json:"weight"`
}

// Summary is the valuation of every current holding
type Summary struct {
	TotalMarketValue decimal.Decimal `json:"total_market_value"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	TotalProfitLoss  decimal.Decimal `json:"total_profit_loss"`
	TotalReturnRate  decimal.Decimal `json:"total_return_rate"`
	TotalDividend    decimal.Decimal `json:"total_dividend"`
	TotalReturn      decimal.Decimal `json:"total_return"`
	TotalReturnPct   decimal.Decimal `json:"total_return_pct"`
	HoldingsCount    int             `json:"holdings_count"`
	Holdings         []Holding       `json:"holdings"`
}

// Allocation is the share of market value in one market or sector
type Allocation struct {
	Name   string          `json:"name"`
	Value  decimal.Decimal `json:"value"`
	Weight decimal.Decimal `json:"weight"`
}

// Concentration describes how evenly market value is spread over holdings.
// Weights here are fractions (0..1), not percentages.
type Concentration struct {
	HoldingsCount     int     `json:"holdings_count"`
	Herfindahl        float64 `json:"herfindahl_index"`
	EffectiveHoldings float64 `json:"effective_holdings"`
	LargestWeight     float64 `json:"largest_weight"`
	Top5Weight        float64 `json:"top5_weight"`
	Top10Weight       float64 `json:"top10_weight"`
	WeightStdDev      float64 `json:"weight_std_dev"`
}

// Analysis breaks market value down by market, sector and top holdings
type Analysis struct {
	TotalMarketValue decimal.Decimal `json:"total_market_value"`
	MarketAllocation []Allocation    `json:"market_allocation"`
	SectorAllocation []Allocation    `json:"sector_allocation"`
	TopHoldings      []Holding       `json:"top_holdings"`
	Concentration    Concentration   `json:"concentration"`
}

// PerformanceReport reports invested capital and returns over a period
type PerformanceReport struct {
	Period              string          `json:"period"`
	StartDate           *string         `json:"start_date"`
	EndDate             string          `json:"end_date"`
	TotalInvested       decimal.Decimal `json:"total_invested"`
	TotalSold           decimal.Decimal `json:"total_sold"`
	NetInvested         decimal.Decimal `json:"net_invested"`
	CurrentMarketValue  decimal.Decimal `json:"current_market_value"`
	TotalDividends      decimal.Decimal `json:"total_dividends"`
	TotalReturn         decimal.Decimal `json:"total_return"`
	TotalReturnPct      decimal.Decimal `json:"total_return_pct"`
	AnnualizedReturnPct decimal.Decimal `json:"annualized_return_pct"`
	TransactionCount    int             `json:"transaction_count"`
	DividendCount       int             `json:"dividend_count"`
}

// MonthAmount is net dividends received in one month
type MonthAmount struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// StockAmount is net dividends received from one stock
type StockAmount struct {
	StockCode string          `json:"stock_code"`
	StockName string          `json:"stock_name"`
	Amount    decimal.Decimal `json:"amount"`
}

// CurrencyAmount is net dividends received in one currency
type CurrencyAmount struct {
	Currency domain.Currency `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// DividendReport analyses one calendar year of dividends
type DividendReport struct {
	Year               int              `json:"year"`
	TotalGross         decimal.Decimal  `json:"total_gross_dividend"`
	TotalTax           decimal.Decimal  `json:"total_tax_amount"`
	TotalNet           decimal.Decimal  `json:"total_net_dividend"`
	DividendYieldPct   decimal.Decimal  `json:"dividend_yield_pct"`
	DividendCount      int              `json:"dividend_count"`
	MonthlyDividends   []MonthAmount    `json:"monthly_dividends"`
	StockDividends     []StockAmount    `json:"stock_dividends"`
	CurrencyDividends  []CurrencyAmount `json:"currency_dividends"`
	CurrentMarketValue decimal.Decimal  `json:"current_market_value"`
}
