package dividends

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/events"
)

const maxNotesLength = 500

// EventEmitter publishes ledger change events
type EventEmitter interface {
	Emit(eventType events.EventType, module string, data map[string]interface{})
}

// Service records dividends
type Service struct {
	db     *database.DB
	repo   *Repository
	events EventEmitter
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a dividend service
func NewService(db *database.DB, emitter EventEmitter, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   NewRepository(db.Conn(), log),
		events: emitter,
		now:    time.Now,
		log:    log.With().Str("service", "dividends").Logger(),
	}
}

// Repository exposes the read-side repository for other modules
func (s *Service) Repository() *Repository {
	return s.repo
}

// Create records a dividend payment; net_dividend is total minus tax
func (s *Service) Create(ctx context.Context, in CreateInput) (*Dividend, error) {
	code, err := domain.NormalizeStockCode(in.StockCode)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Second)
	d := &Dividend{
		StockCode:        code,
		DividendPerShare: in.DividendPerShare,
		TotalDividend:    in.TotalDividend,
		TaxAmount:        decimal.Zero,
		Currency:         in.Currency,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.TaxAmount != nil {
		d.TaxAmount = *in.TaxAmount
	}
	if d.Currency == "" {
		d.Currency = domain.DefaultDividendCurrency
	}
	if in.Notes != nil {
		d.Notes = strings.TrimSpace(*in.Notes)
	}
	if d.Date, err = s.checkDate(in.Date); err != nil {
		return nil, err
	}
	if err := finalize(d); err != nil {
		return nil, err
	}

	err = database.WithTransactionContext(ctx, s.db.Writer(), func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.StockExists(ctx, code)
		if err != nil {
			return err
		}
		if !exists {
			return domain.NotFound("stock %s not found", code)
		}
		return repo.Insert(ctx, d)
	})
	if err != nil {
		return nil, domain.Store(err, "failed to record dividend for %s", code)
	}

	s.emit(events.DividendCreated, d)
	return d, nil
}

// Get returns a dividend or NotFound
func (s *Service) Get(ctx context.Context, id int64) (*Dividend, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Store(err, "failed to load dividend %d", id)
	}
	if d == nil {
		return nil, domain.NotFound("dividend %d not found", id)
	}
	return d, nil
}

// List returns one page of dividends matching the filter, latest first
func (s *Service) List(ctx context.Context, f ListFilter) ([]Dividend, domain.Pagination, error) {
	filter, err := parseFilter(f)
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	page := domain.NewPagination(f.Page, f.PerPage, 0)
	divs, total, err := s.repo.List(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return nil, domain.Pagination{}, domain.Store(err, "failed to list dividends")
	}
	return divs, domain.NewPagination(page.Page, page.PerPage, total), nil
}

// Stats aggregates the dividends matching the filter
func (s *Service) Stats(ctx context.Context, f ListFilter) (Stats, error) {
	filter, err := parseFilter(f)
	if err != nil {
		return Stats{}, err
	}

	divs, err := s.repo.Find(ctx, filter)
	if err != nil {
		return Stats{}, domain.Store(err, "failed to load dividends")
	}
	return BuildStats(divs), nil
}

// Annual summarizes one stock's dividends in a calendar year
func (s *Service) Annual(ctx context.Context, stockCode string, year int) (Annual, error) {
	code, err := domain.NormalizeStockCode(stockCode)
	if err != nil {
		return Annual{}, err
	}
	if year < 1900 || year > 9999 {
		return Annual{}, domain.Validation("invalid year %d", year)
	}

	filter := Filter{
		StockCode: code,
		StartDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format(domain.DateLayout),
		EndDate:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC).Format(domain.DateLayout),
	}
	divs, err := s.repo.Find(ctx, filter)
	if err != nil {
		return Annual{}, domain.Store(err, "failed to load dividends for %s", code)
	}
	return AnnualSummary(code, year, divs), nil
}

// Update edits a dividend and recomputes net_dividend
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Dividend, error) {
	var updated *Dividend
	err := database.WithTransactionContext(ctx, s.db.Writer(), func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		d, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return domain.NotFound("dividend %d not found", id)
		}

		if in.StockCode != nil {
			code, err := domain.NormalizeStockCode(*in.StockCode)
			if err != nil {
				return err
			}
			exists, err := repo.StockExists(ctx, code)
			if err != nil {
				return err
			}
			if !exists {
				return domain.NotFound("stock %s not found", code)
			}
			d.StockCode = code
		}
		if in.Date != nil {
			if d.Date, err = s.checkDate(*in.Date); err != nil {
				return err
			}
		}
		if in.DividendPerShare != nil {
			d.DividendPerShare = *in.DividendPerShare
		}
		if in.TotalDividend != nil {
			d.TotalDividend = *in.TotalDividend
		}
		if in.TaxAmount != nil {
			d.TaxAmount = *in.TaxAmount
		}
		if in.Currency != nil {
			d.Currency = *in.Currency
		}
		if in.Notes != nil {
			d.Notes = strings.TrimSpace(*in.Notes)
		}
		if err := finalize(d); err != nil {
			return err
		}
		d.UpdatedAt = s.now().UTC().Truncate(time.Second)

		if err := repo.Update(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, domain.Store(err, "failed to update dividend %d", id)
	}

	s.emit(events.DividendUpdated, updated)
	return updated, nil
}

// Delete removes a dividend
func (s *Service) Delete(ctx context.Context, id int64) error {
	var deleted *Dividend
	err := database.WithTransactionContext(ctx, s.db.Writer(), func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		d, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return domain.NotFound("dividend %d not found", id)
		}
		deleted = d
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return domain.Store(err, "failed to delete dividend %d", id)
	}

	s.emit(events.DividendDeleted, deleted)
	return nil
}

func (s *Service) checkDate(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", domain.Validation("dividend_date is required")
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		return "", err
	}
	if err := domain.CheckNotFuture("dividend_date", date, s.now()); err != nil {
		return "", err
	}
	return domain.FormatDate(date), nil
}

// finalize validates amounts and recomputes the net dividend
func finalize(d *Dividend) error {
	if !d.DividendPerShare.IsPositive() {
		return domain.Validation("dividend_per_share must be greater than 0")
	}
	if !d.TotalDividend.IsPositive() {
		return domain.Validation("total_dividend must be greater than 0")
	}
	if d.TaxAmount.IsNegative() {
		return domain.Validation("tax_amount must not be negative")
	}
	if d.TaxAmount.GreaterThan(d.TotalDividend) {
		return domain.Validation("tax_amount %s exceeds total_dividend %s", d.TaxAmount, d.TotalDividend)
	}
	if !d.Currency.In(domain.DividendCurrencies) {
		return domain.Validation("invalid dividend currency %q", d.Currency)
	}
	if utf8.RuneCountInString(d.Notes) > maxNotesLength {
		return domain.Validation("notes are longer than %d characters", maxNotesLength)
	}

	d.NetDividend = d.TotalDividend.Sub(d.TaxAmount)
	return nil
}

func parseFilter(f ListFilter) (Filter, error) {
	filter := Filter{StockCode: strings.ToUpper(strings.TrimSpace(f.StockCode))}
	if f.Currency != "" {
		c := domain.Currency(strings.ToUpper(f.Currency))
		if !c.In(domain.DividendCurrencies) {
			return filter, domain.Validation("invalid currency %q", f.Currency)
		}
		filter.Currency = c
	}
	if f.StartDate != "" {
		d, err := domain.ParseDate(f.StartDate)
		if err != nil {
			return filter, err
		}
		filter.StartDate = domain.FormatDate(d)
	}
	if f.EndDate != "" {
		d, err := domain.ParseDate(f.EndDate)
		if err != nil {
			return filter, err
		}
		filter.EndDate = domain.FormatDate(d)
	}
	return filter, nil
}

func (s *Service) emit(eventType events.EventType, d *Dividend) {
	s.events.Emit(eventType, "dividends", map[string]interface{}{
		"id":           d.ID,
		"stock_code":   d.StockCode,
		"net_dividend": d.NetDividend.String(),
		"currency":     string(d.Currency),
	})
}
