package transactions

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

// Repository handles transaction database operations
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

// transactionColumns is the list of columns for the transactions table
// Column order must match scanTransaction()
const transactionColumns = `id, stock_code, type, trade_date, price, shares, commission, total_amount, note, created_at`

// NewRepository creates a new transaction repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "transaction").Logger(),
	}
}

// WithTx returns a repository whose statements run inside tx
func (r *Repository) WithTx(tx database.Querier) *Repository {
	return &Repository{db: tx, log: r.log}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		t         Transaction
		txType    string
		createdAt int64
	)

	err := row.Scan(
		&t.ID,
		&t.StockCode,
		&txType,
		&t.Date,
		&t.Price,
		&t.Shares,
		&t.Commission,
		&t.TotalAmount,
		&t.Notes,
		&createdAt,
	)
	if err != nil {
		return t, err
	}

	t.Type = domain.TransactionType(txType)
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return t, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// GetByID retrieves a transaction. Returns nil, nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return &t, nil
}

// Filter selects transactions; zero fields do not filter
type Filter struct {
	StockCode string
	Type      domain.TransactionType
	StartDate string
	EndDate   string
}

func (f Filter) where() (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if f.StockCode != "" {
		where += " AND stock_code = ?"
		args = append(args, f.StockCode)
	}
	if f.Type != "" {
		where += " AND type = ?"
		args = append(args, string(f.Type))
	}
	if f.StartDate != "" {
		where += " AND trade_date >= ?"
		args = append(args, f.StartDate)
	}
	if f.EndDate != "" {
		where += " AND trade_date <= ?"
		args = append(args, f.EndDate)
	}
	return where, args
}

// List returns one page of matching transactions, newest trade first, plus the total match count
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]Transaction, int, error) {
	where, args := f.where()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := "SELECT " + transactionColumns + " FROM transactions" + where +
		" ORDER BY trade_date DESC, created_at DESC, id DESC LIMIT ? OFFSET ?"
	txs, err := r.query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, total, nil
}

// Find returns every matching transaction in trade order
func (r *Repository) Find(ctx context.Context, f Filter) ([]Transaction, error) {
	where, args := f.where()
	query := "SELECT " + transactionColumns + " FROM transactions" + where + " ORDER BY trade_date, id"
	txs, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find transactions: %w", err)
	}
	return txs, nil
}

// Insert stores a transaction and sets its ID
func (r *Repository) Insert(ctx context.Context, t *Transaction) error {
	query := `INSERT INTO transactions
		(stock_code, type, trade_date, price, shares, commission, total_amount, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		t.StockCode,
		string(t.Type),
		t.Date,
		t.Price.String(),
		t.Shares.String(),
		t.Commission.String(),
		t.TotalAmount.String(),
		t.Notes,
		t.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction for %s: %w", t.StockCode, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read transaction id: %w", err)
	}
	t.ID = id

	r.log.Info().
		Int64("id", id).
		Str("stock_code", t.StockCode).
		Str("type", string(t.Type)).
		Str("shares", t.Shares.String()).
		Msg("Transaction recorded")
	return nil
}

// Update rewrites every field of a transaction except created_at
func (r *Repository) Update(ctx context.Context, t *Transaction) error {
	query := `UPDATE transactions
		SET stock_code = ?, type = ?, trade_date = ?, price = ?, shares = ?, commission = ?, total_amount = ?, note = ?
		WHERE id = ?`

	_, err := r.db.ExecContext(ctx, query,
		t.StockCode,
		string(t.Type),
		t.Date,
		t.Price.String(),
		t.Shares.String(),
		t.Commission.String(),
		t.TotalAmount.String(),
		t.Notes,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %d: %w", t.ID, err)
	}
	return nil
}

// Delete removes a transaction
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	return nil
}
