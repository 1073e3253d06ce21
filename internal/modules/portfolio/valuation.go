package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/modules/stocks"
)

var hundred = decimal.NewFromInt(100)

// percent is num/den*100, or zero when den is not positive
func percent(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.Zero
	}
	return num.Div(den).Mul(hundred)
}

// Summarize values every stock with shares > 0. netDividends maps stock code
// to the net dividends received from it over all time.
//
// Weights need the portfolio total, so they are assigned in a second pass.
// Holdings are sorted by market value, largest first.
func Summarize(all []stocks.Stock, netDividends map[string]decimal.Decimal) Summary {
	summary := Summary{
		TotalMarketValue: decimal.Zero,
		TotalCost:        decimal.Zero,
		TotalDividend:    decimal.Zero,
		Holdings:         make([]Holding, 0),
	}

	for i := range all {
		s := &all[i]
		if !s.TotalShares().IsPositive() {
			continue
		}

		h := newHolding(s)
		h.DividendReceived = decimal.Zero
		if received, ok := netDividends[s.Code]; ok {
			h.DividendReceived = received
		}

		summary.TotalMarketValue = summary.TotalMarketValue.Add(h.MarketValue)
		summary.TotalCost = summary.TotalCost.Add(h.CostValue)
		summary.TotalDividend = summary.TotalDividend.Add(h.DividendReceived)
		summary.Holdings = append(summary.Holdings, h)
	}

	assignWeights(summary.Holdings, summary.TotalMarketValue)
	sortByMarketValue(summary.Holdings)

	summary.HoldingsCount = len(summary.Holdings)
	summary.TotalProfitLoss = summary.TotalMarketValue.Sub(summary.TotalCost)
	summary.TotalReturnRate = percent(summary.TotalProfitLoss, summary.TotalCost)
	summary.TotalReturn = summary.TotalProfitLoss.Add(summary.TotalDividend)
	summary.TotalReturnPct = percent(summary.TotalReturn, summary.TotalCost)
	return summary
}

func newHolding(s *stocks.Stock) Holding {
	h := Holding{
		StockCode:    s.Code,
		StockName:    s.Name,
		Market:       s.Market,
		Sector:       s.SectorOrDefault(),
		Currency:     s.Currency,
		Shares:       s.TotalShares(),
		AvgCost:      s.AvgCost(),
		CurrentPrice: s.ValuationPrice(),
		CostValue:    s.CostValue(),
		MarketValue:  s.MarketValue(),
		Weight:       decimal.Zero,
	}
	h.UnrealizedPnL = h.MarketValue.Sub(h.CostValue)
	h.UnrealizedPnLPct = percent(h.UnrealizedPnL, h.CostValue)
	return h
}

func assignWeights(holdings []Holding, total decimal.Decimal) {
	for i := range holdings {
		holdings[i].Weight = percent(holdings[i].MarketValue, total)
	}
}

func sortByMarketValue(holdings []Holding) {
	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].MarketValue.GreaterThan(holdings[j].MarketValue)
	})
}

// Analyze groups current holdings by market and sector and reports the ten
// largest positions along with concentration metrics.
func Analyze(all []stocks.Stock) Analysis {
	analysis := Analysis{
		TotalMarketValue: decimal.Zero,
		MarketAllocation: make([]Allocation, 0),
		SectorAllocation: make([]Allocation, 0),
		TopHoldings:      make([]Holding, 0),
	}

	byMarket := make(map[string]decimal.Decimal)
	bySector := make(map[string]decimal.Decimal)
	var holdings []Holding

	for i := range all {
		s := &all[i]
		if !s.TotalShares().IsPositive() {
			continue
		}
		h := newHolding(s)
		holdings = append(holdings, h)

		analysis.TotalMarketValue = analysis.TotalMarketValue.Add(h.MarketValue)
		byMarket[string(h.Market)] = byMarket[string(h.Market)].Add(h.MarketValue)
		bySector[h.Sector] = bySector[h.Sector].Add(h.MarketValue)
	}

	assignWeights(holdings, analysis.TotalMarketValue)
	sortByMarketValue(holdings)

	analysis.MarketAllocation = allocations(byMarket, analysis.TotalMarketValue)
	analysis.SectorAllocation = allocations(bySector, analysis.TotalMarketValue)
	if len(holdings) > 10 {
		analysis.TopHoldings = holdings[:10]
	} else if holdings != nil {
		analysis.TopHoldings = holdings
	}
	analysis.Concentration = Concentrate(holdings)
	return analysis
}

func allocations(values map[string]decimal.Decimal, total decimal.Decimal) []Allocation {
	out := make([]Allocation, 0, len(values))
	for name, value := range values {
		out = append(out, Allocation{Name: name, Value: value, Weight: percent(value, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].Name < out[j].Name
	})
	return out
}
