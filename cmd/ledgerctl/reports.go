package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"github.com/aristath/stockledger/internal/modules/portfolio"
	"github.com/aristath/stockledger/internal/report"
)

type summaryCmd struct{}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display current holdings and their valuation" }
func (*summaryCmd) Usage() string {
	return `ledgerctl summary

  Displays every open position with market value, unrealized P&L and weight.
`
}

func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (*summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	summary, err := container.PortfolioService.Summary(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	report.Print(os.Stdout, report.Summary(summary))
	return subcommands.ExitSuccess
}

type performanceCmd struct {
	period string
}

func (*performanceCmd) Name() string     { return "performance" }
func (*performanceCmd) Synopsis() string { return "display invested capital and returns over a period" }
func (*performanceCmd) Usage() string {
	return `ledgerctl performance [-p 1m|3m|6m|1y|all]

  Displays invested, sold and net capital with total and annualized return.
`
}

func (c *performanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.period, "p", portfolio.DefaultPeriod, "Period: 1m, 3m, 6m, 1y or all")
}

func (c *performanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if _, err := portfolio.PeriodStart(c.period, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	container, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	perf, err := container.PortfolioService.Performance(ctx, c.period)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	report.Print(os.Stdout, report.Performance(perf))
	return subcommands.ExitSuccess
}

type dividendsCmd struct {
	year int
}

func (*dividendsCmd) Name() string     { return "dividends" }
func (*dividendsCmd) Synopsis() string { return "display the dividend analysis for a year" }
func (*dividendsCmd) Usage() string {
	return `ledgerctl dividends [-y <year>]

  Displays net dividends by month, stock and currency, and the dividend yield.
`
}

func (c *dividendsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "y", time.Now().Year(), "Calendar year")
}

func (c *dividendsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	container, err := openLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer container.Close()

	analysis, err := container.PortfolioService.DividendAnalysis(ctx, c.year)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	report.Print(os.Stdout, report.Dividends(analysis))
	return subcommands.ExitSuccess
}
