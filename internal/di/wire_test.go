package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/modules/stocks"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.DatabasePath = filepath.Join(dir, "stockledger.db")
	cfg.Backup.Dir = filepath.Join(dir, "backups")
	return cfg
}

func TestWire(t *testing.T) {
	container, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.DB)
	assert.NotNil(t, container.StockService)
	assert.NotNil(t, container.TransactionService)
	assert.NotNil(t, container.DividendService)
	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.Metrics)
	assert.NotNil(t, container.Jobs.Reconcile)
	assert.Len(t, container.Scheduler.Status(), 3)

	_, err = container.StockService.Create(context.Background(), stocks.CreateInput{
		Code: "AAPL", Name: "Apple", Market: "US", Currency: "USD",
	})
	require.NoError(t, err)

	require.NoError(t, container.Scheduler.RunNow("reconcile_positions"))
	require.NoError(t, container.Scheduler.RunNow("backup"))

	backups, err := container.BackupService.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestWire_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsEnabled = false

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.Nil(t, container.Metrics)
}

func TestOrNever(t *testing.T) {
	assert.Equal(t, neverSchedule, orNever(""))
	assert.Equal(t, "@daily", orNever("@daily"))
}
