package testing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/database"
)

// SeedStock inserts a stock row with an empty position.
// Positions are left for the code under test to maintain.
func SeedStock(t *testing.T, db *database.DB, code, name, market, currency, currentPrice string) {
	t.Helper()

	_, err := db.Writer().Exec(`INSERT INTO stocks (code, name, market, currency, current_price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0)`, code, name, market, currency, currentPrice)
	if err != nil {
		t.Fatalf("Failed to seed stock %s: %v", code, err)
	}
}

// SeedDividend inserts a dividend row directly, bypassing validation.
func SeedDividend(t *testing.T, db *database.DB, code, payDate, perShare, total, tax, currency string) {
	t.Helper()

	net := decimal.RequireFromString(total).Sub(decimal.RequireFromString(tax))
	_, err := db.Writer().Exec(`INSERT INTO dividends
		(stock_code, pay_date, dividend_per_share, total_dividend, tax_amount, net_dividend, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0)`,
		code, payDate, perShare, total, tax, net.String(), currency)
	if err != nil {
		t.Fatalf("Failed to seed dividend for %s: %v", code, err)
	}
}
