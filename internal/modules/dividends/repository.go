package dividends

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/domain"
)

// Repository handles dividend database operations
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// dividendColumns is the list of columns for the dividends table
// Column order must match scanDividend()
const dividendColumns = `id, stock_code, pay_date, dividend_per_share, total_dividend, tax_amount, net_dividend,
currency, note, created_at, updated_at`

// NewRepository creates a new dividend repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "dividend").Logger(),
	}
}

// WithTx returns a repository whose statements run inside tx
func (r *Repository) WithTx(tx database.Querier) *Repository {
	return &Repository{db: tx, log: r.log}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDividend(row rowScanner) (Dividend, error) {
	var (
		d         Dividend
		currency  string
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(
		&d.ID,
		&d.StockCode,
		&d.Date,
		&d.DividendPerShare,
		&d.TotalDividend,
		&d.TaxAmount,
		&d.NetDividend,
		&currency,
		&d.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return d, err
	}

	d.Currency = domain.Currency(currency)
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	d.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return d, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]Dividend, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	divs := make([]Dividend, 0)
	for rows.Next() {
		d, err := scanDividend(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dividend: %w", err)
		}
		divs = append(divs, d)
	}
	return divs, rows.Err()
}

// GetByID retrieves a dividend. Returns nil, nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Dividend, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+dividendColumns+" FROM dividends WHERE id = ?", id)
	d, err := scanDividend(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dividend %d: %w", id, err)
	}
	return &d, nil
}

// Filter selects dividends; zero fields do not filter
type Filter struct {
	StockCode string
	StartDate string
	EndDate   string
	Currency  domain.Currency
}

func (f Filter) where() (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if f.StockCode != "" {
		where += " AND stock_code = ?"
		args = append(args, f.StockCode)
	}
	if f.StartDate != "" {
		where += " AND pay_date >= ?"
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		where += " AND pay_date <= ?"
		args = append(args, f.EndDate)
	}
	if f.Currency != "" {
		where += " AND currency = ?"
		args = append(args, string(f.Currency))
	}
	return where, args
}

// List returns one page of matching dividends, latest payment first, plus the total match count
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]Dividend, int, error) {
	where, args := f.where()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dividends"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count dividends: %w", err)
	}

	query := "SELECT " + dividendColumns + " FROM dividends" + where +
		" ORDER BY pay_date DESC, id DESC LIMIT ? OFFSET ?"
	divs, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list dividends: %w", err)
	}
	return divs, total, nil
}

// Find returns every matching dividend in payment order
func (r *Repository) Find(ctx context.Context, f Filter) ([]Dividend, error) {
	where, args := f.where()
	divs, err := r.query(ctx, "SELECT "+dividendColumns+" FROM dividends"+where+" ORDER BY pay_date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find dividends: %w", err)
	}
	return divs, nil
}

// Insert stores a dividend and sets its ID
func (r *Repository) Insert(ctx context.Context, d *Dividend) error {
	query := `INSERT INTO dividends
		(stock_code, pay_date, dividend_per_share, total_dividend, tax_amount, net_dividend, currency, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		d.StockCode,
		d.Date,
		d.DividendPerShare.String(),
		d.TotalDividend.String(),
		d.TaxAmount.String(),
		d.NetDividend.String(),
		string(d.Currency),
		d.Notes,
		d.CreatedAt.Unix(),
		d.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert dividend for %s: %w", d.StockCode, err)
	}

	if d.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read dividend id: %w", err)
	}

	r.log.Info().Int64("id", d.ID).Str("stock_code", d.StockCode).Str("net", d.NetDividend.String()).Msg("Dividend recorded")
	return nil
}

// Update rewrites a dividend
func (r *Repository) Update(ctx context.Context, d *Dividend) error {
	query := `UPDATE dividends
		SET stock_code = ?, pay_date = ?, dividend_per_share = ?, total_dividend = ?, tax_amount = ?,
		    net_dividend = ?, currency = ?, note = ?, updated_at = ?
		WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query,
		d.StockCode,
		d.Date,
		d.DividendPerShare.String(),
		d.TotalDividend.String(),
		d.TaxAmount.String(),
		d.NetDividend.String(),
		string(d.Currency),
		d.Notes,
		d.UpdatedAt.Unix(),
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dividend %d: %w", d.ID, err)
	}
	return nil
}

// Delete removes a dividend
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM dividends WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete dividend %d: %w", id, err)
	}
	return nil
}

// StockExists reports whether a stock row exists
func (r *Repository) StockExists(ctx context.Context, code string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stocks WHERE code = ?", code).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up stock %s: %w", code, err)
	}
	return n > 0, nil
}
