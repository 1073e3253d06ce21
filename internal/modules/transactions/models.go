// Package transactions records buy and sell trades and keeps each stock's
// position in step with its trade history.
package transactions

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/positions"
)

// Transaction is one recorded trade
type Transaction struct {
	ID          int64                  `json:"id"`
	StockCode   string                 `json:"stock_code"`
	Type        domain.TransactionType `json:"transaction_type"`
	Date        string                 `json:"transaction_date"` // YYYY-MM-DD
	Price       decimal.Decimal        `json:"price"`
	Shares      decimal.Decimal        `json:"shares"`
	Commission  decimal.Decimal        `json:"commission"`
	TotalAmount decimal.Decimal        `json:"total_amount"` // price*shares rounded to cents
	Notes       string                 `json:"notes"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Entry is the trade as the position engine sees it
func (t *Transaction) Entry() positions.Entry {
	return positions.Entry{
		Type:       t.Type,
		Price:      t.Price,
		Shares:     t.Shares,
		Commission: t.Commission,
	}
}

// NetAmount is the cash effect of the trade: BUY costs total plus commission,
// SELL yields total minus commission.
func (t *Transaction) NetAmount() decimal.Decimal {
	if t.Type == domain.TransactionSell {
		return t.TotalAmount.Sub(t.Commission)
	}
	return t.TotalAmount.Add(t.Commission)
}

// GrossAmount is price times shares rounded to cents
func GrossAmount(price, shares decimal.Decimal) decimal.Decimal {
	return price.Mul(shares).Round(2)
}

// CreateInput carries the fields of a new trade
type CreateInput struct {
	StockCode  string           `json:"stock_code"`
	Type       string           `json:"transaction_type"`
	Date       string           `json:"transaction_date"`
	Price      decimal.Decimal  `json:"price"`
	Shares     decimal.Decimal  `json:"shares"`
	Commission *decimal.Decimal `json:"commission"`
	Notes      *string          `json:"notes"`
}

// UpdateInput carries the fields to change; nil fields keep their value
type UpdateInput struct {
	StockCode  *string          `json:"stock_code"`
	Type       *string          `json:"transaction_type"`
	Date       *string          `json:"transaction_date"`
	Price      *decimal.Decimal `json:"price"`
	Shares     *decimal.Decimal `json:"shares"`
	Commission *decimal.Decimal `json:"commission"`
	Notes      *string          `json:"notes"`
}

// ListFilter narrows a transaction listing. Dates are inclusive YYYY-MM-DD bounds.
type ListFilter struct {
	StockCode string
	Type      string
	StartDate string
	EndDate   string
	Page      int
	PerPage   int
}

// Stats summarizes a set of trades
type Stats struct {
	TotalTransactions int             `json:"total_transactions"`
	BuyCount          int             `json:"buy_count"`
	SellCount         int             `json:"sell_count"`
	TotalBuyAmount    decimal.Decimal `json:"total_buy_amount"`
	TotalSellAmount   decimal.Decimal `json:"total_sell_amount"`
	TotalCommission   decimal.Decimal `json:"total_commission"`
	BuyShares         decimal.Decimal `json:"buy_shares"`
	SellShares        decimal.Decimal `json:"sell_shares"`
	NetShares         decimal.Decimal `json:"net_shares"`
	NetAmount         decimal.Decimal `json:"net_amount"` // sells - buys - commission
}
