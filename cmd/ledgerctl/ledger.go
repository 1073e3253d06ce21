package main

import (
	"flag"

	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/di"
	"github.com/aristath/stockledger/pkg/logger"
)

var logLevel = flag.String("log-level", "warn", "Log level for diagnostics written to stderr")

// openLedger wires the same container as the server, minus the scheduler
// start and HTTP listener.
func openLedger() (*di.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: *logLevel, Pretty: true})
	return di.Wire(cfg, log)
}
