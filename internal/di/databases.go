package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/database"
)

// InitializeDatabase opens the ledger database and applies its schema
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath,
		Profile: database.ProfileLedger, // fsync every commit; the ledger is the source of truth
		Name:    "ledger",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate ledger database: %w", err)
	}

	log.Info().Str("path", db.Path()).Msg("Ledger database ready")
	return db, nil
}
