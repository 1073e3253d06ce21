package dividends

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
)

// BuildStats aggregates divs overall, by currency, by stock and by month.
// By-stock and monthly rows are sorted by stock code and month.
func BuildStats(divs []Dividend) Stats {
	stats := Stats{
		TotalGross: decimal.Zero,
		TotalTax:   decimal.Zero,
		TotalNet:   decimal.Zero,
		ByCurrency: make(map[domain.Currency]*Totals),
	}
	byStock := make(map[string]*Totals)
	byMonth := make(map[string]*Totals)

	for i := range divs {
		d := &divs[i]
		stats.TotalRecords++
		stats.TotalGross = stats.TotalGross.Add(d.TotalDividend)
		stats.TotalTax = stats.TotalTax.Add(d.TaxAmount)
		stats.TotalNet = stats.TotalNet.Add(d.NetDividend)

		bucket(stats.ByCurrency, d.Currency).add(d)
		bucket(byStock, d.StockCode).add(d)
		bucket(byMonth, d.Month()).add(d)
	}

	stats.ByStock = make([]StockTotals, 0, len(byStock))
	for code, t := range byStock {
		stats.ByStock = append(stats.ByStock, StockTotals{StockCode: code, Totals: *t})
	}
	sort.Slice(stats.ByStock, func(i, j int) bool { return stats.ByStock[i].StockCode < stats.ByStock[j].StockCode })

	stats.MonthlyTrend = make([]MonthTotals, 0, len(byMonth))
	for month, t := range byMonth {
		stats.MonthlyTrend = append(stats.MonthlyTrend, MonthTotals{Month: month, Totals: *t})
	}
	sort.Slice(stats.MonthlyTrend, func(i, j int) bool { return stats.MonthlyTrend[i].Month < stats.MonthlyTrend[j].Month })

	return stats
}

func bucket[K comparable](m map[K]*Totals, key K) *Totals {
	t, ok := m[key]
	if !ok {
		t = &Totals{Gross: decimal.Zero, Tax: decimal.Zero, Net: decimal.Zero}
		m[key] = t
	}
	return t
}

// AnnualSummary summarizes the dividends of stockCode paid in year.
// divs may contain other stocks and years; they are skipped.
func AnnualSummary(stockCode string, year int, divs []Dividend) Annual {
	summary := Annual{
		StockCode:           stockCode,
		Year:                year,
		TotalDividend:       decimal.Zero,
		TotalNetDividend:    decimal.Zero,
		AvgDividendPerShare: decimal.Zero,
	}

	prefix := strconv.Itoa(year) + "-"
	perShare := decimal.Zero
	for _, d := range divs {
		if d.StockCode != stockCode || len(d.Date) < 5 || d.Date[:5] != prefix {
			continue
		}
		summary.DividendCount++
		summary.TotalDividend = summary.TotalDividend.Add(d.TotalDividend)
		summary.TotalNetDividend = summary.TotalNetDividend.Add(d.NetDividend)
		perShare = perShare.Add(d.DividendPerShare)
	}

	if summary.DividendCount > 0 {
		summary.AvgDividendPerShare = perShare.Div(decimal.NewFromInt(int64(summary.DividendCount)))
	}
	return summary
}
