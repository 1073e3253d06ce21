package stocks

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/events"
)

// EventEmitter publishes ledger change events
type EventEmitter interface {
	Emit(eventType events.EventType, module string, data map[string]interface{})
}

// Service implements stock CRUD and search
type Service struct {
	db     *database.DB
	repo   *Repository
	events EventEmitter
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a stock service
func NewService(db *database.DB, emitter EventEmitter, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   NewRepository(db.Conn(), log),
		events: emitter,
		now:    time.Now,
		log:    log.With().Str("service", "stocks").Logger(),
	}
}

// Repository exposes the read-side repository for other modules
func (s *Service) Repository() *Repository {
	return s.repo
}

// Create adds a new stock with an empty position
func (s *Service) Create(ctx context.Context, in CreateInput) (*Stock, error) {
	code, err := domain.NormalizeStockCode(in.Code)
	if err != nil {
		return nil, err
	}
	if in.Currency == "" {
		in.Currency = domain.DefaultStockCurrency
	}
	if err := validateDescriptive(in.Name, in.Market, in.Currency, in.CurrentPrice); err != nil {
		return nil, err
	}

	now := s.now().UTC().Truncate(time.Second)
	stock := &Stock{
		Code:      code,
		Name:      strings.TrimSpace(in.Name),
		Market:    in.Market,
		Currency:  in.Currency,
		Sector:    strings.TrimSpace(in.Sector),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.CurrentPrice != nil {
		stock.CurrentPrice = *in.CurrentPrice
		stock.PriceUpdatedAt = &now
	}

	err = database.WithTransactionContext(ctx, s.db.Writer(), func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.GetByCode(ctx, code)
		if err != nil {
			return domain.Store(err, "failed to check stock %s", code)
		}
		if existing != nil {
			return domain.Conflict("stock %s already exists", code)
		}
		return repo.Insert(ctx, stock)
	})
	if err != nil {
		return nil, domain.Store(err, "failed to create stock %s", code)
	}

	s.emit(events.StockCreated, stock)
	return stock, nil
}

// Get returns a stock or NotFound
func (s *Service) Get(ctx context.Context, code string) (*Stock, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	stock, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, domain.Store(err, "failed to load stock %s", code)
	}
	if stock == nil {
		return nil, domain.NotFound("stock %s not found", code)
	}
	return stock, nil
}

// Detail returns a stock with its transaction and dividend counts
func (s *Service) Detail(ctx context.Context, code string) (*Detail, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var detail *Detail
	err := s.db.ReadSnapshot(ctx, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		stock, err := repo.GetByCode(ctx, code)
		if err != nil {
			return domain.Store(err, "failed to load stock %s", code)
		}
		if stock == nil {
			return domain.NotFound("stock %s not found", code)
		}
		txCount, divCount, err := repo.CountHistory(ctx, code)
		if err != nil {
			return domain.Store(err, "failed to count history for %s", code)
		}
		detail = &Detail{Stock: *stock, TransactionCount: txCount, DividendCount: divCount}
		return nil
	})
	if err != nil {
		return nil, domain.Store(err, "failed to read stock %s", code)
	}
	return detail, nil
}

// List returns one page of stocks matching the filter
func (s *Service) List(ctx context.Context, f ListFilter) ([]Stock, domain.Pagination, error) {
	if f.Market != "" && !f.Market.Valid() {
		return nil, domain.Pagination{}, domain.Validation("invalid market %q", f.Market)
	}

	page := domain.NewPagination(f.Page, f.PerPage, 0)
	items, total, err := s.repo.List(ctx, string(f.Market), strings.TrimSpace(f.Search), page.PerPage, page.Offset())
	if err != nil {
		return nil, domain.Pagination{}, domain.Store(err, "failed to list stocks")
	}
	return items, domain.NewPagination(page.Page, page.PerPage, total), nil
}

// Search returns up to limit stocks whose code or name contains q
func (s *Service) Search(ctx context.Context, q string, limit int) ([]Stock, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, domain.Validation("search query is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	stocks, err := s.repo.Search(ctx, q, limit)
	return stocks, domain.Store(err, "failed to search stocks")
}

// Update changes descriptive fields and the manual price. Setting a price
// stamps price_update_time.
func (s *Service) Update(ctx context.Context, code string, in UpdateInput) (*Stock, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var (
		updated      *Stock
		priceChanged bool
	)

	err := database.WithTransactionContext(ctx, s.db.Writer(), func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		stock, err := repo.GetByCode(ctx, code)
		if err != nil {
			return domain.Store(err, "failed to load stock %s", code)
		}
		if stock == nil {
			return domain.NotFound("stock %s not found", code)
		}

		now := s.now().UTC().Truncate(time.Second)
		if in.Name != nil {
			stock.Name = strings.TrimSpace(*in.Name)
		}
		if in.Market != nil {
			stock.Market = *in.Market
		}
		if in.Currency != nil {
			stock.Currency = *in.Currency
		}
		if in.Sector != nil {
			stock.Sector = strings.TrimSpace(*in.Sector)
		}
		if in.CurrentPrice != nil {
			priceChanged = !in.CurrentPrice.Equal(stock.CurrentPrice)
			stock.CurrentPrice = *in.CurrentPrice
			stock.PriceUpdatedAt = &now
		}
		if err := validateDescriptive(stock.Name, stock.Market, stock.Currency, &stock.CurrentPrice); err != nil {
			return err
		}
		stock.UpdatedAt = now

		if err := repo.Update(ctx, stock); err != nil {
			return domain.Store(err, "failed to update stock %s", code)
		}
		updated = stock
		return nil
	})
	if err != nil {
		return nil, domain.Store(err, "failed to update stock %s", code)
	}

	s.emit(events.StockUpdated, updated)
	if priceChanged {
		s.emit(events.PriceUpdated, updated)
	}
	return updated, nil
}

// SetPrice records a manually entered price
func (s *Service) SetPrice(ctx context.Context, code string, price decimal.Decimal) (*Stock, error) {
	return s.Update(ctx, code, UpdateInput{CurrentPrice: &price})
}

// Delete removes a stock that has no transactions and no dividends
func (s *Service) Delete(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))

	err := database.WithTransactionContext(ctx, s.db.Writer(), func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		stock, err := repo.GetByCode(ctx, code)
		if err != nil {
			return domain.Store(err, "failed to load stock %s", code)
		}
		if stock == nil {
			return domain.NotFound("stock %s not found", code)
		}

		txCount, divCount, err := repo.CountHistory(ctx, code)
		if err != nil {
			return domain.Store(err, "failed to count history for %s", code)
		}
		if txCount > 0 || divCount > 0 {
			return domain.Conflict("stock %s still has %d transactions and %d dividends", code, txCount, divCount)
		}

		return repo.Delete(ctx, code)
	})
	if err != nil {
		return domain.Store(err, "failed to delete stock %s", code)
	}

	s.events.Emit(events.StockDeleted, "stocks", map[string]interface{}{"stock_code": code})
	return nil
}

func (s *Service) emit(eventType events.EventType, stock *Stock) {
	s.events.Emit(eventType, "stocks", map[string]interface{}{
		"stock_code":    stock.Code,
		"stock_name":    stock.Name,
		"current_price": stock.CurrentPrice.String(),
	})
}

func validateDescriptive(name string, market domain.Market, currency domain.Currency, price *decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Validation("stock name is required")
	}
	if len([]rune(name)) > 100 {
		return domain.Validation("stock name is longer than 100 characters")
	}
	if !market.Valid() {
		return domain.Validation("invalid market %q", market)
	}
	if !currency.In(domain.StockCurrencies) {
		return domain.Validation("invalid stock currency %q", currency)
	}
	if price != nil && price.IsNegative() {
		return domain.Validation("current price must not be negative")
	}
	return nil
}
