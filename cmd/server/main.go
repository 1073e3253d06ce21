// Package main is the entry point for the stockledger HTTP service.
// It records stock positions, buy/sell transactions and dividend receipts
// and serves valuation and performance reports over a JSON API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/di"
	"github.com/aristath/stockledger/internal/server"
	"github.com/aristath/stockledger/pkg/logger"
)

// main orchestrates startup:
// 1. Loads configuration (defaults, optional YAML file, environment)
// 2. Initializes logging
// 3. Wires the database, services and maintenance jobs
// 4. Starts the scheduler and the HTTP server
// 5. Waits for a shutdown signal and stops everything in reverse order
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Fallback logger so the configuration error is still reported
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	})

	log.Info().
		Str("version", server.Version).
		Str("data_dir", cfg.DataDir).
		Msg("Starting stockledger")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	// Closing the container checkpoints and closes the database
	defer func() {
		if err := container.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close container")
		}
	}()

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Running jobs finish before the database closes
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
