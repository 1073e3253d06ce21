// Package reliability holds the maintenance work that keeps the ledger
// trustworthy: position reconciliation, database upkeep and backups.
package reliability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/events"
	"github.com/aristath/stockledger/internal/modules/positions"
	"github.com/aristath/stockledger/internal/modules/stocks"
	"github.com/aristath/stockledger/internal/modules/transactions"
)

// driftTolerance absorbs rounding from division in stored averages
var driftTolerance = decimal.New(1, -6)

// EventEmitter publishes maintenance events
type EventEmitter interface {
	Emit(eventType events.EventType, module string, data map[string]interface{})
}

// Drift is one stock whose stored position disagrees with its history
type Drift struct {
	StockCode        string          `json:"stock_code"`
	StoredShares     decimal.Decimal `json:"stored_shares"`
	ExpectedShares   decimal.Decimal `json:"expected_shares"`
	StoredAvgCost    decimal.Decimal `json:"stored_avg_cost"`
	ExpectedAvgCost  decimal.Decimal `json:"expected_avg_cost"`
	TransactionCount int             `json:"transaction_count"`
}

// ReconcileReport is the outcome of one reconciliation pass
type ReconcileReport struct {
	CheckedStocks int       `json:"checked_stocks"`
	Drifted       []Drift   `json:"drifted"`
	Fixed         bool      `json:"fixed"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Reconciler rebuilds every position from its full transaction history and
// compares it to the stored running aggregates.
type Reconciler struct {
	db     *database.DB
	events EventEmitter
	now    func() time.Time
	log    zerolog.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(db *database.DB, emitter EventEmitter, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		db:     db,
		events: emitter,
		now:    time.Now,
		log:    log.With().Str("service", "reconcile").Logger(),
	}
}

// Run checks every stock. With fix set, drifted positions are overwritten
// with the recalculated values in the same write transaction, so no
// mutation can interleave between the check and the repair.
func (r *Reconciler) Run(ctx context.Context, fix bool) (*ReconcileReport, error) {
	report := &ReconcileReport{Drifted: []Drift{}, CheckedAt: r.now().UTC()}

	work := func(tx *sql.Tx) error {
		stockRepo := stocks.NewRepository(tx, r.log)
		txRepo := transactions.NewRepository(tx, r.log)

		all, err := stockRepo.ListAll(ctx)
		if err != nil {
			return err
		}
		report.CheckedStocks = len(all)

		for i := range all {
			s := &all[i]
			history, err := txRepo.Find(ctx, transactions.Filter{StockCode: s.Code})
			if err != nil {
				return err
			}

			entries := make([]positions.Entry, len(history))
			for j := range history {
				entries[j] = history[j].Entry()
			}
			expected := positions.Recalculate(entries)

			if !drifted(s.Position, expected) {
				continue
			}
			report.Drifted = append(report.Drifted, Drift{
				StockCode:        s.Code,
				StoredShares:     s.Position.Shares(),
				ExpectedShares:   expected.Shares(),
				StoredAvgCost:    s.Position.AvgCost(),
				ExpectedAvgCost:  expected.AvgCost(),
				TransactionCount: len(history),
			})

			if fix {
				if err := stockRepo.UpdatePosition(ctx, s.Code, expected, r.now().UTC()); err != nil {
					return err
				}
			}
		}
		return nil
	}

	var err error
	if fix {
		err = database.WithTransactionContext(ctx, r.db.Writer(), work)
	} else {
		err = r.db.ReadSnapshot(ctx, work)
	}
	if err != nil {
		return nil, domain.Store(err, "failed to reconcile positions")
	}
	report.Fixed = fix && len(report.Drifted) > 0

	for _, d := range report.Drifted {
		r.log.Warn().
			Str("stock_code", d.StockCode).
			Str("stored_shares", d.StoredShares.String()).
			Str("expected_shares", d.ExpectedShares.String()).
			Bool("fixed", fix).
			Msg("Position drift detected")
	}
	r.log.Info().
		Int("checked", report.CheckedStocks).
		Int("drifted", len(report.Drifted)).
		Msg("Position reconciliation completed")

	if r.events != nil {
		r.events.Emit(events.PositionsReconciled, "reliability", map[string]interface{}{
			"checked_stocks": report.CheckedStocks,
			"drifted":        len(report.Drifted),
			"fixed":          report.Fixed,
		})
	}
	return report, nil
}

func drifted(stored, expected positions.Position) bool {
	return differs(stored.BoughtShares, expected.BoughtShares) ||
		differs(stored.BuyCost, expected.BuyCost) ||
		differs(stored.SoldShares, expected.SoldShares)
}

func differs(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(driftTolerance)
}

// ReconcileJob runs a fixing reconciliation on the maintenance schedule
type ReconcileJob struct {
	reconciler *Reconciler
	timeout    time.Duration
}

// NewReconcileJob creates the scheduled reconciliation job
func NewReconcileJob(reconciler *Reconciler) *ReconcileJob {
	return &ReconcileJob{reconciler: reconciler, timeout: 5 * time.Minute}
}

// Name returns the job name for scheduler
func (j *ReconcileJob) Name() string {
	return "reconcile_positions"
}

// Run executes the reconciliation
func (j *ReconcileJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.reconciler.Run(ctx, true); err != nil {
		return fmt.Errorf("reconcile job failed: %w", err)
	}
	return nil
}
