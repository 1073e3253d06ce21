// Package report renders ledger reports as markdown for terminal display.
package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/httpjson"
	"github.com/aristath/stockledger/internal/modules/portfolio"
	"github.com/aristath/stockledger/internal/reliability"
)

func pct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

// num renders an amount without a currency; totals mix currencies
func num(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Summary renders the holdings table with totals
func Summary(s *portfolio.Summary) string {
	var b strings.Builder

	b.WriteString("# Portfolio summary\n\n")
	if s.HoldingsCount == 0 {
		b.WriteString("No open positions.\n")
		return b.String()
	}

	b.WriteString("| Code | Name | Shares | Avg cost | Price | Market value | P&L | P&L % | Weight |\n")
	b.WriteString("|:-----|:-----|-----:|-----:|-----:|-----:|-----:|-----:|-----:|\n")
	for _, h := range s.Holdings {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			h.StockCode, h.StockName, h.Shares.String(),
			httpjson.Money(h.AvgCost, h.Currency),
			httpjson.Money(h.CurrentPrice, h.Currency),
			httpjson.Money(h.MarketValue, h.Currency),
			httpjson.Money(h.UnrealizedPnL, h.Currency),
			pct(h.UnrealizedPnLPct), pct(h.Weight))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "- **Market value:** %s\n", num(s.TotalMarketValue))
	fmt.Fprintf(&b, "- **Cost:** %s\n", num(s.TotalCost))
	fmt.Fprintf(&b, "- **Unrealized P&L:** %s (%s)\n", num(s.TotalProfitLoss), pct(s.TotalReturnRate))
	fmt.Fprintf(&b, "- **Dividends received:** %s\n", num(s.TotalDividend))
	fmt.Fprintf(&b, "- **Total return:** %s (%s)\n", num(s.TotalReturn), pct(s.TotalReturnPct))
	return b.String()
}

// Performance renders a period performance report
func Performance(p *portfolio.PerformanceReport) string {
	var b strings.Builder

	start := "inception"
	if p.StartDate != nil {
		start = *p.StartDate
	}
	fmt.Fprintf(&b, "# Performance (%s)\n\n", p.Period)
	fmt.Fprintf(&b, "%s to %s\n\n", start, p.EndDate)

	b.WriteString("| Metric | Value |\n|:--|--:|\n")
	rows := [][2]string{
		{"Invested", num(p.TotalInvested)},
		{"Sold", num(p.TotalSold)},
		{"Net invested", num(p.NetInvested)},
		{"Market value", num(p.CurrentMarketValue)},
		{"Dividends", num(p.TotalDividends)},
		{"Total return", num(p.TotalReturn)},
		{"Return", pct(p.TotalReturnPct)},
		{"Annualized", pct(p.AnnualizedReturnPct)},
		{"Transactions", fmt.Sprint(p.TransactionCount)},
		{"Dividend payments", fmt.Sprint(p.DividendCount)},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s |\n", r[0], r[1])
	}
	return b.String()
}

// Dividends renders the annual dividend analysis
func Dividends(d *portfolio.DividendReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Dividends %d\n\n", d.Year)
	fmt.Fprintf(&b, "- **Gross:** %s\n", num(d.TotalGross))
	fmt.Fprintf(&b, "- **Tax:** %s\n", num(d.TotalTax))
	fmt.Fprintf(&b, "- **Net:** %s\n", num(d.TotalNet))
	fmt.Fprintf(&b, "- **Yield:** %s\n", pct(d.DividendYieldPct))
	fmt.Fprintf(&b, "- **Payments:** %d\n\n", d.DividendCount)

	if len(d.StockDividends) > 0 {
		b.WriteString("## By stock\n\n| Code | Name | Net |\n|:--|:--|--:|\n")
		for _, s := range d.StockDividends {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", s.StockCode, s.StockName, num(s.Amount))
		}
		b.WriteString("\n")
	}

	if len(d.CurrencyDividends) > 0 {
		b.WriteString("## By currency\n\n| Currency | Net |\n|:--|--:|\n")
		for _, c := range d.CurrencyDividends {
			fmt.Fprintf(&b, "| %s | %s |\n", c.Currency, httpjson.Money(c.Amount, c.Currency))
		}
		b.WriteString("\n")
	}

	b.WriteString("## By month\n\n| Month | Net |\n|:--|--:|\n")
	for _, m := range d.MonthlyDividends {
		fmt.Fprintf(&b, "| %s | %s |\n", m.Month, num(m.Amount))
	}
	return b.String()
}

// Reconcile renders a reconciliation report
func Reconcile(r *reliability.ReconcileReport) string {
	var b strings.Builder

	b.WriteString("# Position reconciliation\n\n")
	fmt.Fprintf(&b, "Checked %d stocks at %s.\n\n", r.CheckedStocks, r.CheckedAt.Format("2006-01-02 15:04:05"))
	if len(r.Drifted) == 0 {
		b.WriteString("All positions match their transaction history.\n")
		return b.String()
	}

	b.WriteString("| Code | Stored shares | Expected shares | Stored avg | Expected avg | Transactions |\n")
	b.WriteString("|:--|--:|--:|--:|--:|--:|\n")
	for _, d := range r.Drifted {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %d |\n",
			d.StockCode, d.StoredShares, d.ExpectedShares,
			d.StoredAvgCost.StringFixed(4), d.ExpectedAvgCost.StringFixed(4), d.TransactionCount)
	}
	if r.Fixed {
		fmt.Fprintf(&b, "\n%d positions repaired.\n", len(r.Drifted))
	} else {
		b.WriteString("\nDry run, nothing was changed.\n")
	}
	return b.String()
}

// Backup renders the outcome of a backup
func Backup(r *reliability.BackupResult) string {
	var b strings.Builder

	b.WriteString("# Backup\n\n")
	fmt.Fprintf(&b, "- **Archive:** `%s`\n", r.Archive)
	fmt.Fprintf(&b, "- **Size:** %d bytes\n", r.Metadata.SizeBytes)
	fmt.Fprintf(&b, "- **Checksum:** `%s`\n", r.Metadata.Checksum)
	fmt.Fprintf(&b, "- **Uploaded:** %t\n", r.Uploaded)
	fmt.Fprintf(&b, "- **Took:** %s\n", r.Duration)
	return b.String()
}

// Backups renders the archive listing
func Backups(list []reliability.BackupInfo) string {
	var b strings.Builder

	b.WriteString("# Backups\n\n")
	if len(list) == 0 {
		b.WriteString("No backups yet.\n")
		return b.String()
	}
	b.WriteString("| File | Location | Taken | Size |\n|:--|:--|:--|--:|\n")
	for _, i := range list {
		fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", i.Filename, i.Location, i.Timestamp.Format("2006-01-02 15:04"), i.SizeBytes)
	}
	return b.String()
}
