// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Market represents the exchange a stock trades on
type Market string

const (
	MarketSZ Market = "SZ" // Shenzhen
	MarketSH Market = "SH" // Shanghai
	MarketHK Market = "HK" // Hong Kong
	MarketUS Market = "US"
)

// Markets lists every supported market in display order
var Markets = []Market{MarketSZ, MarketSH, MarketHK, MarketUS}

// Valid reports whether m is a known market
func (m Market) Valid() bool {
	for _, known := range Markets {
		if m == known {
			return true
		}
	}
	return false
}

// Currency represents a currency code
type Currency string

const (
	CurrencyCNY Currency = "CNY"
	CurrencyHKD Currency = "HKD"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
)

// StockCurrencies are the quote currencies a stock may be listed in
var StockCurrencies = []Currency{CurrencyCNY, CurrencyHKD, CurrencyUSD}

// DividendCurrencies are the currencies a dividend may be paid in
var DividendCurrencies = []Currency{CurrencyHKD, CurrencyUSD, CurrencyCNY, CurrencyEUR, CurrencyGBP, CurrencyJPY}

// DefaultStockCurrency is used when a stock is created without a currency
const DefaultStockCurrency = CurrencyCNY

// DefaultDividendCurrency is used when a dividend is recorded without a currency
const DefaultDividendCurrency = CurrencyHKD

// In reports whether c is one of allowed
func (c Currency) In(allowed []Currency) bool {
	for _, a := range allowed {
		if c == a {
			return true
		}
	}
	return false
}

// TransactionType is the direction of a trade
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Valid reports whether t is BUY or SELL
func (t TransactionType) Valid() bool {
	return t == TransactionBuy || t == TransactionSell
}

// ParseTransactionType accepts BUY/SELL in any case
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", Validation("invalid transaction type %q", s)
	}
	return t, nil
}

// DateLayout is the on-disk and wire format of trade and payment dates
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date as a UTC calendar day
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, Validation("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a calendar day as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today truncates now to a UTC calendar day using the local wall-clock date
func Today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckNotFuture rejects dates after today
func CheckNotFuture(field string, date, now time.Time) error {
	if date.After(Today(now)) {
		return Validation("%s %s is in the future", field, FormatDate(date))
	}
	return nil
}

var stockCodePattern = regexp.MustCompile(`^[A-Z0-9.]+$`)

// NormalizeStockCode upper-cases and validates a stock code such as "0700.HK"
func NormalizeStockCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", Validation("stock code is required")
	}
	if len(code) > 20 {
		return "", Validation("stock code %q is longer than 20 characters", code)
	}
	if !stockCodePattern.MatchString(code) {
		return "", Validation("stock code %q may only contain letters, digits and dots", code)
	}
	return code, nil
}

// Pagination carries page framing for list endpoints
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// NewPagination clamps page and per_page and derives the page count
func NewPagination(page, perPage, total int) Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	pages := 0
	if total > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, Pages: pages}
}

// Offset is the row offset of the current page
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// String is used in log lines
func (p Pagination) String() string {
	return fmt.Sprintf("page %d/%d (%d per page, %d total)", p.Page, p.Pages, p.PerPage, p.Total)
}
