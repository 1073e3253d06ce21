package portfolio

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/dividends"
	"github.com/aristath/stockledger/internal/modules/stocks"
	"github.com/aristath/stockledger/internal/modules/transactions"
)

// Service builds portfolio reports from one consistent read of the ledger
type Service struct {
	db           *database.DB
	stocks       *stocks.Repository
	transactions *transactions.Repository
	dividends    *dividends.Repository
	now          func() time.Time
	log          zerolog.Logger
}

// NewService creates a portfolio service
func NewService(db *database.DB, log zerolog.Logger) *Service {
	return &Service{
		db:           db,
		stocks:       stocks.NewRepository(db.Conn(), log),
		transactions: transactions.NewRepository(db.Conn(), log),
		dividends:    dividends.NewRepository(db.Conn(), log),
		now:          time.Now,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// ledger is what a report reads, captured inside a single snapshot
type ledger struct {
	stocks       []stocks.Stock
	transactions []transactions.Transaction
	dividends    []dividends.Dividend
}

type loadOptions struct {
	transactions   bool
	dividends      bool
	dividendFilter dividends.Filter
}

func (s *Service) load(ctx context.Context, opts loadOptions) (*ledger, error) {
	var l ledger
	err := s.db.ReadSnapshot(ctx, func(tx *sql.Tx) error {
		var err error
		if l.stocks, err = s.stocks.WithTx(tx).ListAll(ctx); err != nil {
			return err
		}
		if opts.transactions {
			if l.transactions, err = s.transactions.WithTx(tx).Find(ctx, transactions.Filter{}); err != nil {
				return err
			}
		}
		if opts.dividends {
			if l.dividends, err = s.dividends.WithTx(tx).Find(ctx, opts.dividendFilter); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.Store(err, "failed to read ledger")
	}
	return &l, nil
}

// Summary values all current holdings
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	l, err := s.load(ctx, loadOptions{dividends: true})
	if err != nil {
		return nil, err
	}

	received := make(map[string]decimal.Decimal)
	for i := range l.dividends {
		d := &l.dividends[i]
		received[d.StockCode] = received[d.StockCode].Add(d.NetDividend)
	}

	summary := Summarize(l.stocks, received)
	s.log.Debug().
		Int("holdings", summary.HoldingsCount).
		Str("market_value", summary.TotalMarketValue.StringFixed(2)).
		Msg("Portfolio summarized")
	return &summary, nil
}

// Analysis returns allocation and concentration for current holdings
func (s *Service) Analysis(ctx context.Context) (*Analysis, error) {
	l, err := s.load(ctx, loadOptions{})
	if err != nil {
		return nil, err
	}
	analysis := Analyze(l.stocks)
	return &analysis, nil
}

// Concentration returns only the concentration metrics
func (s *Service) Concentration(ctx context.Context) (*Concentration, error) {
	analysis, err := s.Analysis(ctx)
	if err != nil {
		return nil, err
	}
	return &analysis.Concentration, nil
}

// Performance reports returns over period ("1m", "3m", "6m", "1y" or "all")
func (s *Service) Performance(ctx context.Context, period string) (*PerformanceReport, error) {
	if period == "" {
		period = DefaultPeriod
	}
	// Fail before touching the database on a bad period.
	if _, err := PeriodStart(period, s.now()); err != nil {
		return nil, err
	}

	l, err := s.load(ctx, loadOptions{transactions: true, dividends: true})
	if err != nil {
		return nil, err
	}
	return Performance(period, s.now(), l.transactions, l.dividends, l.stocks)
}

// DividendAnalysis analyses dividends paid in year
func (s *Service) DividendAnalysis(ctx context.Context, year int) (*DividendReport, error) {
	if year < 1900 || year > 9999 {
		return nil, domain.Validation("year %d is out of range", year)
	}

	l, err := s.load(ctx, loadOptions{dividends: true, dividendFilter: dividends.Filter{
		StartDate: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Format(domain.DateLayout),
		EndDate:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).Format(domain.DateLayout),
	}})
	if err != nil {
		return nil, err
	}
	return DividendAnalysis(year, l.dividends, l.stocks), nil
}

// Now exposes the service clock so handlers default the report year consistently
func (s *Service) Now() time.Time {
	return s.now()
}
