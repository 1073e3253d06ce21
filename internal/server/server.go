// Package server provides the HTTP server and routing for the ledger API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/di"
	dividendhandlers "github.com/aristath/stockledger/internal/modules/dividends/handlers"
	portfoliohandlers "github.com/aristath/stockledger/internal/modules/portfolio/handlers"
	stockhandlers "github.com/aristath/stockledger/internal/modules/stocks/handlers"
	transactionhandlers "github.com/aristath/stockledger/internal/modules/transactions/handlers"
)

// Version is reported by the health and index endpoints; set with -ldflags
var Version = "dev"

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Container *di.Container
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	container *di.Container
	startedAt time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	appCfg := cfg.Container.Config

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		container: cfg.Container,
		startedAt: time.Now(),
	}

	s.setupMiddleware(appCfg.DevMode, appCfg.CORSOrigins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // the event stream holds connections open; handlers are bounded by middleware.Timeout
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool, origins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	if s.container.Metrics != nil {
		s.router.Use(s.container.Metrics.Middleware)
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5, "application/json"))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	c := s.container

	s.router.Get("/", s.handleIndex)
	s.router.Get("/health", s.handleHealth)
	if c.Metrics != nil {
		s.router.Handle("/metrics", c.Metrics.Handler())
	}

	stream := NewEventsStreamHandler(c.EventBus, c.Config.CORSOrigins, s.log)
	system := NewSystemHandlers(c.DB, c.EventBus, c.Scheduler, s.startedAt, s.log)
	maintenance := NewMaintenanceHandlers(c.Reconciler, c.BackupService, s.log)
	logs := NewLogHandlers(c.Config.LogFile, s.log)

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived, so outside the request timeout group
		r.Get("/events/ws", stream.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/health", s.handleHealth)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", system.HandleSystemStatus)
				r.Get("/database", system.HandleDatabaseStats)
				r.Get("/jobs", system.HandleJobsStatus)
				r.Post("/jobs/{name}/run", system.HandleRunJob)
				r.Get("/logs", logs.HandleGetLogs)
				r.Get("/logs/errors", logs.HandleGetErrors)
			})

			r.Route("/maintenance", func(r chi.Router) {
				r.Post("/reconcile", maintenance.HandleReconcile)
				r.Post("/backup", maintenance.HandleBackup)
				r.Get("/backups", maintenance.HandleListBackups)
			})

			stockhandlers.NewHandler(c.StockService, s.log).RegisterRoutes(r)
			transactionhandlers.NewHandler(c.TransactionService, s.log).RegisterRoutes(r)
			dividendhandlers.NewHandler(c.DividendService, s.log).RegisterRoutes(r)
			portfoliohandlers.NewHandler(c.PortfolioService, s.log).RegisterRoutes(r)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
