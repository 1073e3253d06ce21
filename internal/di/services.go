package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/events"
	"github.com/aristath/stockledger/internal/metrics"
	"github.com/aristath/stockledger/internal/modules/dividends"
	"github.com/aristath/stockledger/internal/modules/portfolio"
	"github.com/aristath/stockledger/internal/modules/stocks"
	"github.com/aristath/stockledger/internal/modules/transactions"
	"github.com/aristath/stockledger/internal/reliability"
)

// InitializeServices creates the event plumbing and every ledger service
func InitializeServices(c *Container, cfg *config.Config, log zerolog.Logger) error {
	c.EventBus = events.NewBus()
	c.EventManager = events.NewManager(c.EventBus, log)

	if cfg.MetricsEnabled {
		c.Metrics = metrics.New(true)
		c.closers = append(c.closers, c.Metrics.SubscribeEvents(c.EventBus))
	}

	c.StockService = stocks.NewService(c.DB, c.EventManager, log)
	c.TransactionService = transactions.NewService(c.DB, c.EventManager, log)
	c.DividendService = dividends.NewService(c.DB, c.EventManager, log)
	c.PortfolioService = portfolio.NewService(c.DB, log)

	c.Reconciler = reliability.NewReconciler(c.DB, c.EventManager, log)

	remote, err := newRemoteStore(cfg, log)
	if err != nil {
		return err
	}
	c.BackupService = reliability.NewBackupService(c.DB, cfg.Backup.Dir, cfg.Backup.RetentionDays, remote, c.EventManager, log)

	log.Debug().Msg("Services initialized")
	return nil
}

// newRemoteStore returns nil when no bucket is configured
func newRemoteStore(cfg *config.Config, log zerolog.Logger) (reliability.RemoteStore, error) {
	s3cfg := cfg.Backup.S3
	if s3cfg.Bucket == "" {
		return nil, nil
	}

	store, err := reliability.NewS3Store(context.Background(), reliability.S3Options{
		Bucket:          s3cfg.Bucket,
		Endpoint:        s3cfg.Endpoint,
		Region:          s3cfg.Region,
		AccessKeyID:     s3cfg.AccessKeyID,
		SecretAccessKey: s3cfg.SecretAccessKey,
		Prefix:          s3cfg.Prefix,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to configure backup bucket: %w", err)
	}
	return store, nil
}
