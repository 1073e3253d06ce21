package stocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/modules/positions"
)

// Repository handles stock database operations
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// stockColumns is the list of columns for the stocks table
// Column order must match scanStock()
const stockColumns = `code, name, market, currency, sector, current_price, price_updated_at,
bought_shares, buy_cost, sold_shares, created_at, updated_at`

// NewRepository creates a new stock repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "stock").Logger(),
	}
}

// WithTx returns a repository whose statements run inside tx
func (r *Repository) WithTx(tx database.Querier) *Repository {
	return &Repository{db: tx, log: r.log}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStock(row rowScanner) (Stock, error) {
	var (
		s              Stock
		market         string
		currency       string
		priceUpdatedAt sql.NullInt64
		createdAt      int64
		updatedAt      int64
	)

	err := row.Scan(
		&s.Code,
		&s.Name,
		&market,
		&currency,
		&s.Sector,
		&s.CurrentPrice,
		&priceUpdatedAt,
		&s.Position.BoughtShares,
		&s.Position.BuyCost,
		&s.Position.SoldShares,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return s, err
	}

	s.Market = domain.Market(market)
	s.Currency = domain.Currency(currency)
	if priceUpdatedAt.Valid {
		t := time.Unix(priceUpdatedAt.Int64, 0).UTC()
		s.PriceUpdatedAt = &t
	}
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return s, nil
}

func (r *Repository) queryStocks(ctx context.Context, query string, args ...interface{}) ([]Stock, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stocks := make([]Stock, 0)
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// GetByCode retrieves a stock. Returns nil, nil when it does not exist.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Stock, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+stockColumns+" FROM stocks WHERE code = ?", code)
	s, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock %s: %w", code, err)
	}
	return &s, nil
}

func listWhere(market, search string) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if market != "" {
		where += " AND market = ?"
		args = append(args, market)
	}
	if search != "" {
		pattern := "%" + strings.ToUpper(search) + "%"
		where += " AND (UPPER(name) LIKE ? OR code LIKE ?)"
		args = append(args, pattern, pattern)
	}
	return where, args
}

// List returns one page of stocks ordered by code, plus the total match count
func (r *Repository) List(ctx context.Context, market, search string, limit, offset int) ([]Stock, int, error) {
	where, args := listWhere(market, search)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stocks"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count stocks: %w", err)
	}

	query := "SELECT " + stockColumns + " FROM stocks" + where + " ORDER BY code LIMIT ? OFFSET ?"
	stocks, err := r.queryStocks(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stocks: %w", err)
	}
	return stocks, total, nil
}

// Search matches code or name for autocomplete, exact code prefixes first
func (r *Repository) Search(ctx context.Context, q string, limit int) ([]Stock, error) {
	pattern := "%" + strings.ToUpper(q) + "%"
	query := "SELECT " + stockColumns + ` FROM stocks
		WHERE code LIKE ? OR UPPER(name) LIKE ?
		ORDER BY CASE WHEN code LIKE ? THEN 0 ELSE 1 END, code
		LIMIT ?`

	stocks, err := r.queryStocks(ctx, query, pattern, pattern, strings.ToUpper(q)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search stocks: %w", err)
	}
	return stocks, nil
}

// ListAll returns every stock ordered by code
func (r *Repository) ListAll(ctx context.Context) ([]Stock, error) {
	stocks, err := r.queryStocks(ctx, "SELECT "+stockColumns+" FROM stocks ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	return stocks, nil
}

// ListHeld returns stocks with a positive holding
func (r *Repository) ListHeld(ctx context.Context) ([]Stock, error) {
	query := "SELECT " + stockColumns + " FROM stocks WHERE CAST(total_shares AS REAL) > 0 ORDER BY code"
	stocks, err := r.queryStocks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list held stocks: %w", err)
	}
	return stocks, nil
}

// Insert creates a stock row with an empty position
func (r *Repository) Insert(ctx context.Context, s *Stock) error {
	query := `INSERT INTO stocks
		(code, name, market, currency, sector, current_price, price_updated_at,
		 total_shares, avg_cost, bought_shares, buy_cost, sold_shares, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		s.Code,
		s.Name,
		string(s.Market),
		string(s.Currency),
		s.Sector,
		s.CurrentPrice.String(),
		nullUnix(s.PriceUpdatedAt),
		s.TotalShares().String(),
		s.AvgCost().String(),
		s.Position.BoughtShares.String(),
		s.Position.BuyCost.String(),
		s.Position.SoldShares.String(),
		s.CreatedAt.Unix(),
		s.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert stock %s: %w", s.Code, err)
	}

	r.log.Info().Str("stock_code", s.Code).Msg("Stock created")
	return nil
}

// Update writes the descriptive fields and manual price. Position columns are untouched.
func (r *Repository) Update(ctx context.Context, s *Stock) error {
	query := `UPDATE stocks
		SET name = ?, market = ?, currency = ?, sector = ?, current_price = ?, price_updated_at = ?, updated_at = ?
		WHERE code = ?`

	_, err := r.db.ExecContext(ctx, query,
		s.Name,
		string(s.Market),
		string(s.Currency),
		s.Sector,
		s.CurrentPrice.String(),
		nullUnix(s.PriceUpdatedAt),
		s.UpdatedAt.Unix(),
		s.Code,
	)
	if err != nil {
		return fmt.Errorf("failed to update stock %s: %w", s.Code, err)
	}
	return nil
}

// UpdatePosition persists a position and its derived shares and average cost
func (r *Repository) UpdatePosition(ctx context.Context, code string, p positions.Position, now time.Time) error {
	query := `UPDATE stocks
		SET total_shares = ?, avg_cost = ?, bought_shares = ?, buy_cost = ?, sold_shares = ?, updated_at = ?
		WHERE code = ?`

	result, err := r.db.ExecContext(ctx, query,
		p.Shares().String(),
		p.AvgCost().String(),
		p.BoughtShares.String(),
		p.BuyCost.String(),
		p.SoldShares.String(),
		now.Unix(),
		code,
	)
	if err != nil {
		return fmt.Errorf("failed to update position for %s: %w", code, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update position for %s: stock row missing", code)
	}

	r.log.Debug().
		Str("stock_code", code).
		Str("total_shares", p.Shares().String()).
		Str("avg_cost", p.AvgCost().StringFixed(4)).
		Msg("Position updated")
	return nil
}

// Delete removes a stock row
func (r *Repository) Delete(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM stocks WHERE code = ?", code); err != nil {
		return fmt.Errorf("failed to delete stock %s: %w", code, err)
	}
	r.log.Info().Str("stock_code", code).Msg("Stock deleted")
	return nil
}

// CountHistory returns how many transactions and dividends reference the stock
func (r *Repository) CountHistory(ctx context.Context, code string) (transactions int, dividends int, err error) {
	query := `SELECT
		(SELECT COUNT(*) FROM transactions WHERE stock_code = ?),
		(SELECT COUNT(*) FROM dividends WHERE stock_code = ?)`
	if err := r.db.QueryRowContext(ctx, query, code, code).Scan(&transactions, &dividends); err != nil {
		return 0, 0, fmt.Errorf("failed to count history for %s: %w", code, err)
	}
	return transactions, dividends, nil
}

func nullUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

