package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/dividends"
	"github.com/aristath/stockledger/internal/modules/stocks"
	"github.com/aristath/stockledger/internal/modules/transactions"
)

// PeriodAll covers the whole history
const PeriodAll = "all"

// DefaultPeriod is used when the caller names none
const DefaultPeriod = "1y"

var periodDays = map[string]int{
	"1m": 30,
	"3m": 90,
	"6m": 180,
	"1y": 365,
}

// PeriodStart returns the first day included in period, or nil for "all".
func PeriodStart(period string, today time.Time) (*time.Time, error) {
	if period == PeriodAll {
		return nil, nil
	}
	days, ok := periodDays[period]
	if !ok {
		return nil, domain.Validation("unknown period %q, expected one of 1m, 3m, 6m, 1y, all", period)
	}
	start := domain.Today(today).AddDate(0, 0, -days)
	return &start, nil
}

// Performance reports what was invested, sold and received within the period
// against the current market value of every holding.
//
// The annualized figure is a linear scaling of the period return
// (pct * 365 / days) and is only reported for bounded periods with a
// positive investment.
func Performance(period string, today time.Time, txs []transactions.Transaction, divs []dividends.Dividend, all []stocks.Stock) (*PerformanceReport, error) {
	if period == "" {
		period = DefaultPeriod
	}
	start, err := PeriodStart(period, today)
	if err != nil {
		return nil, err
	}

	report := &PerformanceReport{
		Period:              period,
		EndDate:             domain.FormatDate(domain.Today(today)),
		TotalInvested:       decimal.Zero,
		TotalSold:           decimal.Zero,
		TotalDividends:      decimal.Zero,
		CurrentMarketValue:  decimal.Zero,
		AnnualizedReturnPct: decimal.Zero,
	}
	from := ""
	if start != nil {
		from = domain.FormatDate(*start)
		report.StartDate = &from
	}

	for i := range txs {
		t := &txs[i]
		if t.Date < from {
			continue
		}
		report.TransactionCount++
		switch t.Type {
		case domain.TransactionBuy:
			report.TotalInvested = report.TotalInvested.Add(t.NetAmount())
		case domain.TransactionSell:
			report.TotalSold = report.TotalSold.Add(t.NetAmount())
		}
	}

	for i := range divs {
		if divs[i].Date < from {
			continue
		}
		report.DividendCount++
		report.TotalDividends = report.TotalDividends.Add(divs[i].NetDividend)
	}

	for i := range all {
		if all[i].TotalShares().IsPositive() {
			report.CurrentMarketValue = report.CurrentMarketValue.Add(all[i].MarketValue())
		}
	}

	report.NetInvested = report.TotalInvested.Sub(report.TotalSold)
	report.TotalReturn = report.CurrentMarketValue.
		Add(report.TotalSold).
		Add(report.TotalDividends).
		Sub(report.TotalInvested)
	report.TotalReturnPct = percent(report.TotalReturn, report.TotalInvested)

	if start != nil && report.TotalInvested.IsPositive() {
		days := decimal.NewFromInt(int64(periodDays[period]))
		report.AnnualizedReturnPct = report.TotalReturnPct.Mul(decimal.NewFromInt(365)).Div(days)
	}
	return report, nil
}
