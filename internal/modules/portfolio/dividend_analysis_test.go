package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/dividends"
	"github.com/aristath/stockledger/internal/modules/stocks"
)

func TestDividendAnalysis_TencentYield(t *testing.T) {
	// 50 shares left at 420 after selling half: market value 21000.
	held := []stocks.Stock{stock("0700.HK", domain.MarketHK, "", "420", "100", "40060", "50")}
	divs := []dividends.Dividend{dividend("0700.HK", "2024-05-20", "240", "24", domain.CurrencyHKD)}

	report := DividendAnalysis(2024, divs, held)

	assert.Equal(t, 1, report.DividendCount)
	assert.True(t, report.TotalNet.Equal(d("216")))
	assert.True(t, report.CurrentMarketValue.Equal(d("21000")))
	assert.InDelta(t, 1.0286, report.DividendYieldPct.InexactFloat64(), 1e-4)
}

func TestDividendAnalysis_Breakdown(t *testing.T) {
	all := []stocks.Stock{
		stock("0700.HK", domain.MarketHK, "", "420", "100", "40060", "0"),
		stock("AAPL", domain.MarketUS, "", "190", "10", "1500", "10"),
	}
	divs := []dividends.Dividend{
		dividend("0700.HK", "2024-05-20", "240", "24", domain.CurrencyHKD),
		dividend("0700.HK", "2024-09-18", "100", "10", domain.CurrencyHKD),
		dividend("AAPL", "2024-05-02", "5", "0", domain.CurrencyUSD),
		dividend("9988.HK", "2024-12-31", "400", "0", domain.CurrencyUSD),
		dividend("0700.HK", "2023-05-20", "999", "0", domain.CurrencyHKD),
	}

	report := DividendAnalysis(2024, divs, all)

	assert.Equal(t, 4, report.DividendCount)
	assert.True(t, report.TotalGross.Equal(d("745")))
	assert.True(t, report.TotalTax.Equal(d("34")))
	assert.True(t, report.TotalNet.Equal(d("711")))

	require.Len(t, report.MonthlyDividends, 12)
	assert.Equal(t, "2024-01", report.MonthlyDividends[0].Month)
	assert.True(t, report.MonthlyDividends[0].Amount.IsZero())
	assert.True(t, report.MonthlyDividends[4].Amount.Equal(d("221")))
	assert.True(t, report.MonthlyDividends[8].Amount.Equal(d("90")))
	assert.True(t, report.MonthlyDividends[11].Amount.Equal(d("400")))

	require.Len(t, report.StockDividends, 3)
	assert.Equal(t, "9988.HK", report.StockDividends[0].StockCode)
	assert.Equal(t, "9988.HK", report.StockDividends[0].StockName, "unknown stocks fall back to their code")
	assert.Equal(t, "0700.HK", report.StockDividends[1].StockCode)
	assert.Equal(t, "0700.HK Ltd", report.StockDividends[1].StockName)
	assert.True(t, report.StockDividends[1].Amount.Equal(d("306")))

	require.Len(t, report.CurrencyDividends, 2)
	assert.Equal(t, domain.CurrencyUSD, report.CurrencyDividends[0].Currency)
	assert.True(t, report.CurrencyDividends[0].Amount.Equal(d("405")))
}

func TestDividendAnalysis_NoHoldings(t *testing.T) {
	report := DividendAnalysis(2024, []dividends.Dividend{
		dividend("0700.HK", "2024-05-20", "240", "24", domain.CurrencyHKD),
	}, nil)

	assert.True(t, report.CurrentMarketValue.IsZero())
	assert.True(t, report.DividendYieldPct.IsZero())
	assert.True(t, report.TotalNet.Equal(d("216")))
}
