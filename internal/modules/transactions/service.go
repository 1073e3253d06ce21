package transactions

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
	"github.com/aristath/stockledger/internal/modules/positions"
	"github.com/aristath/stockledger/internal/modules/stocks"
)

const maxNotesLength = 500

// EventEmitter publishes ledger change events
type EventEmitter interface {
	Emit(eventType events.EventType, module string, data map[string]interface{})
}

// Service records trades and maintains stock positions.
//
// Every mutation runs as one BEGIN IMMEDIATE transaction on the single-connection
// writer pool: the trade row and the position update commit together or not at
// all. The per-stock locks additionally keep same-stock requests queued in
// arrival order ahead of the writer.
type Service struct {
	db     *database.DB
	repo   *Repository
	stocks *stocks.Repository
	locks  *stockLocks
	events EventEmitter
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates a transaction service
func NewService(db *database.DB, emitter EventEmitter, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   NewRepository(db.Conn(), log),
		stocks: stocks.NewRepository(db.Conn(), log),
		locks:  newStockLocks(),
		events: emitter,
		now:    time.Now,
		log:    log.With().Str("service", "transactions").Logger(),
	}
}

// Repository exposes the read-side repository for other modules
func (s *Service) Repository() *Repository {
	return s.repo
}

// Create records a trade and applies it to the stock's position
func (s *Service) Create(ctx context.Context, in CreateInput) (*Transaction, error) {
	t, err := s.buildNew(in)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(t.StockCode)
	defer unlock()

	var position positions.Position
	err = database.WithTransactionContext(ctx, s.db.Writer(), func(tx *sql.Tx) error {
		stockRepo := s.stocks.WithTx(tx)
		stock, err := stockRepo.GetByCode(ctx, t.StockCode)
		if err != nil {
			return err
		}
		if stock == nil {
			return domain.NotFound("stock %s not found", t.StockCode)
		}

		position, err = positions.Apply(stock.Position, t.Entry())
		if err != nil {
			return err
		}

		if err := s.repo.WithTx(tx).Insert(ctx, t); err != nil {
			return err
		}
		return stockRepo.UpdatePosition(ctx, t.StockCode, position, s.now())
	})
	if err != nil {
		return nil, domain.Store(err, "failed to record transaction for %s", t.StockCode)
	}

	s.emitTransaction(events.TransactionCreated, t)
	s.emitPosition(t.StockCode, position)
	return t, nil
}

// Get returns a transaction or NotFound
func (s *Service) Get(ctx context.Context, id int64) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Store(err, "failed to load transaction %d", id)
	}
	if t == nil {
		return nil, domain.NotFound("transaction %d not found", id)
	}
	return t, nil
}

// List returns one page of trades matching the filter, newest first
func (s *Service) List(ctx context.Context, f ListFilter) ([]Transaction, domain.Pagination, error) {
	filter, err := parseFilter(f.StockCode, f.Type, f.StartDate, f.EndDate)
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	page := domain.NewPagination(f.Page, f.PerPage, 0)
	txs, total, err := s.repo.List(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return nil, domain.Pagination{}, domain.Store(err, "failed to list transactions")
	}
	return txs, domain.NewPagination(page.Page, page.PerPage, total), nil
}

// Stats aggregates the trades matching the filter; paging fields are ignored
func (s *Service) Stats(ctx context.Context, f ListFilter) (Stats, error) {
	filter, err := parseFilter(f.StockCode, "", f.StartDate, f.EndDate)
	if err != nil {
		return Stats{}, err
	}

	txs, err := s.repo.Find(ctx, filter)
	if err != nil {
		return Stats{}, domain.Store(err, "failed to load transactions")
	}
	return BuildStats(txs), nil
}

// Update edits a trade. The resulting positions equal deleting the old trade
// and creating the edited one. Moving a trade to another stock reverses it on
// the old stock and applies it to the new one inside the same transaction.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Transaction, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	target := current.StockCode
	if in.StockCode != nil {
		if target, err = domain.NormalizeStockCode(*in.StockCode); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.lock(current.StockCode, target)
	defer unlock()

	var (
		updated *Transaction
		changed = map[string]positions.Position{}
	)
	err = database.WithTransactionContext(ctx, s.db.Writer(), func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		stockRepo := s.stocks.WithTx(tx)

		old, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if old == nil {
			return domain.NotFound("transaction %d not found", id)
		}
		if old.StockCode != current.StockCode {
			// Moved by a concurrent update after we picked our locks
			return domain.Conflict("transaction %d was modified concurrently, retry", id)
		}

		next, err := s.applyUpdate(*old, in)
		if err != nil {
			return err
		}

		oldStock, err := stockRepo.GetByCode(ctx, old.StockCode)
		if err != nil {
			return err
		}
		if oldStock == nil {
			return domain.NotFound("stock %s not found", old.StockCode)
		}

		if next.StockCode == old.StockCode {
			p, err := positions.Replace(oldStock.Position, old.Entry(), next.Entry())
			if err != nil {
				return err
			}
			changed[old.StockCode] = p
		} else {
			newStock, err := stockRepo.GetByCode(ctx, next.StockCode)
			if err != nil {
				return err
			}
			if newStock == nil {
				return domain.NotFound("stock %s not found", next.StockCode)
			}

			reversed, err := positions.Reverse(oldStock.Position, old.Entry())
			if err != nil {
				return err
			}
			applied, err := positions.Apply(newStock.Position, next.Entry())
			if err != nil {
				return err
			}
			changed[old.StockCode] = reversed
			changed[next.StockCode] = applied
		}

		if err := repo.Update(ctx, &next); err != nil {
			return err
		}
		now := s.now()
		for code, p := range changed {
			if err := stockRepo.UpdatePosition(ctx, code, p, now); err != nil {
				return err
			}
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, domain.Store(err, "failed to update transaction %d", id)
	}

	s.emitTransaction(events.TransactionUpdated, updated)
	for code, p := range changed {
		s.emitPosition(code, p)
	}
	return updated, nil
}

// Delete removes a trade and reverses its effect on the position
func (s *Service) Delete(ctx context.Context, id int64) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(current.StockCode)
	defer unlock()

	var position positions.Position
	err = database.WithTransactionContext(ctx, s.db.Writer(), func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		stockRepo := s.stocks.WithTx(tx)

		t, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.NotFound("transaction %d not found", id)
		}
		if t.StockCode != current.StockCode {
			return domain.Conflict("transaction %d was modified concurrently, retry", id)
		}

		stock, err := stockRepo.GetByCode(ctx, t.StockCode)
		if err != nil {
			return err
		}
		if stock == nil {
			return domain.NotFound("stock %s not found", t.StockCode)
		}

		position, err = positions.Reverse(stock.Position, t.Entry())
		if err != nil {
			return err
		}

		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return stockRepo.UpdatePosition(ctx, t.StockCode, position, s.now())
	})
	if err != nil {
		return domain.Store(err, "failed to delete transaction %d", id)
	}

	s.emitTransaction(events.TransactionDeleted, current)
	s.emitPosition(current.StockCode, position)
	return nil
}

func (s *Service) buildNew(in CreateInput) (*Transaction, error) {
	code, err := domain.NormalizeStockCode(in.StockCode)
	if err != nil {
		return nil, err
	}
	txType, err := domain.ParseTransactionType(in.Type)
	if err != nil {
		return nil, err
	}

	t := &Transaction{
		StockCode:  code,
		Type:       txType,
		Price:      in.Price,
		Shares:     in.Shares,
		Commission: decimal.Zero,
		CreatedAt:  s.now().UTC().Truncate(time.Second),
	}
	if in.Commission != nil {
		t.Commission = *in.Commission
	}
	if in.Notes != nil {
		t.Notes = strings.TrimSpace(*in.Notes)
	}
	if t.Date, err = s.checkDate(in.Date); err != nil {
		return nil, err
	}

	if err := validateFields(t); err != nil {
		return nil, err
	}
	t.TotalAmount = GrossAmount(t.Price, t.Shares)
	return t, nil
}

// applyUpdate overlays the non-nil fields of in onto t and recomputes total_amount
func (s *Service) applyUpdate(t Transaction, in UpdateInput) (Transaction, error) {
	var err error
	if in.StockCode != nil {
		if t.StockCode, err = domain.NormalizeStockCode(*in.StockCode); err != nil {
			return t, err
		}
	}
	if in.Type != nil {
		if t.Type, err = domain.ParseTransactionType(*in.Type); err != nil {
			return t, err
		}
	}
	if in.Date != nil {
		if t.Date, err = s.checkDate(*in.Date); err != nil {
			return t, err
		}
	}
	if in.Price != nil {
		t.Price = *in.Price
	}
	if in.Shares != nil {
		t.Shares = *in.Shares
	}
	if in.Commission != nil {
		t.Commission = *in.Commission
	}
	if in.Notes != nil {
		t.Notes = strings.TrimSpace(*in.Notes)
	}

	if err := validateFields(&t); err != nil {
		return t, err
	}
	t.TotalAmount = GrossAmount(t.Price, t.Shares)
	return t, nil
}

func (s *Service) checkDate(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", domain.Validation("transaction_date is required")
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		return "", err
	}
	if err := domain.CheckNotFuture("transaction_date", date, s.now()); err != nil {
		return "", err
	}
	return domain.FormatDate(date), nil
}

func validateFields(t *Transaction) error {
	if !t.Price.IsPositive() {
		return domain.Validation("price must be greater than 0")
	}
	if !t.Shares.IsPositive() {
		return domain.Validation("shares must be greater than 0")
	}
	if t.Commission.IsNegative() {
		return domain.Validation("commission must not be negative")
	}
	if utf8.RuneCountInString(t.Notes) > maxNotesLength {
		return domain.Validation("notes are longer than %d characters", maxNotesLength)
	}
	return nil
}

func parseFilter(code, txType, start, end string) (Filter, error) {
	f := Filter{StockCode: strings.ToUpper(strings.TrimSpace(code))}
	if txType != "" {
		t, err := domain.ParseTransactionType(txType)
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	for _, bound := range []struct {
		raw string
		dst *string
	}{{start, &f.StartDate}, {end, &f.EndDate}} {
		if bound.raw == "" {
			continue
		}
		d, err := domain.ParseDate(bound.raw)
		if err != nil {
			return f, err
		}
		*bound.dst = domain.FormatDate(d)
	}
	return f, nil
}

func (s *Service) emitTransaction(eventType events.EventType, t *Transaction) {
	s.events.Emit(eventType, "transactions", map[string]interface{}{
		"id":               t.ID,
		"stock_code":       t.StockCode,
		"transaction_type": string(t.Type),
		"shares":           t.Shares.String(),
		"price":            t.Price.String(),
	})
}

func (s *Service) emitPosition(code string, p positions.Position) {
	s.events.Emit(events.PositionChanged, "transactions", map[string]interface{}{
		"stock_code":   code,
		"total_shares": p.Shares().String(),
		"avg_cost":     p.AvgCost().StringFixed(4),
	})
}
