// Package di wires the ledger's database, services, handlers and jobs.
package di

import (
	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/events"
	"github.com/aristath/stockledger/internal/metrics"
	"github.com/aristath/stockledger/internal/modules/dividends"
	"github.com/aristath/stockledger/internal/modules/portfolio"
	"github.com/aristath/stockledger/internal/modules/stocks"
	"github.com/aristath/stockledger/internal/modules/transactions"
	"github.com/aristath/stockledger/internal/reliability"
	"github.com/aristath/stockledger/internal/scheduler"
)

// Container holds every long-lived dependency.
// It is created by Wire and is the only place the database handle lives;
// nothing in the ledger reaches for a package-level connection.
type Container struct {
	Config *config.Config
	Log    zerolog.Logger

	DB *database.DB

	EventBus     *events.Bus
	EventManager *events.Manager
	Metrics      *metrics.Metrics // nil when metrics are disabled

	StockService       *stocks.Service
	TransactionService *transactions.Service
	DividendService    *dividends.Service
	PortfolioService   *portfolio.Service

	Reconciler    *reliability.Reconciler
	BackupService *reliability.BackupService

	Scheduler *scheduler.Scheduler
	Jobs      *JobInstances

	closers []func()
}

// JobInstances holds the maintenance jobs so they can be run on demand
type JobInstances struct {
	Reconcile   *reliability.ReconcileJob
	Backup      *reliability.BackupJob
	Maintenance *reliability.DailyMaintenanceJob
}

// Close releases subscriptions and the database
func (c *Container) Close() error {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
