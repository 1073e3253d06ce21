package portfolio

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/dividends"
	"github.com/aristath/stockledger/internal/modules/stocks"
)

// DividendAnalysis summarises the dividends paid in year. Months without a
// payment are reported as zero; the yield is measured against the current
// market value of all holdings.
func DividendAnalysis(year int, divs []dividends.Dividend, all []stocks.Stock) *DividendReport {
	report := &DividendReport{
		Year:               year,
		TotalGross:         decimal.Zero,
		TotalTax:           decimal.Zero,
		TotalNet:           decimal.Zero,
		DividendYieldPct:   decimal.Zero,
		CurrentMarketValue: decimal.Zero,
		MonthlyDividends:   make([]MonthAmount, 12),
		StockDividends:     make([]StockAmount, 0),
		CurrencyDividends:  make([]CurrencyAmount, 0),
	}

	prefix := strconv.Itoa(year) + "-"
	for m := range report.MonthlyDividends {
		report.MonthlyDividends[m] = MonthAmount{
			Month:  fmt.Sprintf("%04d-%02d", year, m+1),
			Amount: decimal.Zero,
		}
	}

	names := make(map[string]string, len(all))
	for i := range all {
		names[all[i].Code] = all[i].Name
		if all[i].TotalShares().IsPositive() {
			report.CurrentMarketValue = report.CurrentMarketValue.Add(all[i].MarketValue())
		}
	}

	byStock := make(map[string]decimal.Decimal)
	byCurrency := make(map[domain.Currency]decimal.Decimal)

	for i := range divs {
		d := &divs[i]
		if len(d.Date) < 7 || !strings.HasPrefix(d.Date, prefix) {
			continue
		}
		month, err := strconv.Atoi(d.Date[5:7])
		if err != nil || month < 1 || month > 12 {
			continue
		}

		report.DividendCount++
		report.TotalGross = report.TotalGross.Add(d.TotalDividend)
		report.TotalTax = report.TotalTax.Add(d.TaxAmount)
		report.TotalNet = report.TotalNet.Add(d.NetDividend)

		slot := &report.MonthlyDividends[month-1]
		slot.Amount = slot.Amount.Add(d.NetDividend)
		byStock[d.StockCode] = byStock[d.StockCode].Add(d.NetDividend)
		byCurrency[d.Currency] = byCurrency[d.Currency].Add(d.NetDividend)
	}

	for code, amount := range byStock {
		name := names[code]
		if name == "" {
			name = code
		}
		report.StockDividends = append(report.StockDividends, StockAmount{StockCode: code, StockName: name, Amount: amount})
	}
	sort.Slice(report.StockDividends, func(i, j int) bool {
		a, b := report.StockDividends[i], report.StockDividends[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.StockCode < b.StockCode
	})

	for currency, amount := range byCurrency {
		report.CurrencyDividends = append(report.CurrencyDividends, CurrencyAmount{Currency: currency, Amount: amount})
	}
	sort.Slice(report.CurrencyDividends, func(i, j int) bool {
		a, b := report.CurrencyDividends[i], report.CurrencyDividends[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Currency < b.Currency
	})

	report.DividendYieldPct = percent(report.TotalNet, report.CurrentMarketValue)
	return report
}
