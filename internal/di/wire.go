package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open and migrate the database
// 2. Initialize event plumbing and services
// 3. Register maintenance jobs
//
// The scheduler is returned stopped; the caller starts it.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := InitializeDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	container := &Container{Config: cfg, Log: log, DB: db}

	if err := InitializeServices(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := RegisterJobs(container, cfg, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, nil
}
