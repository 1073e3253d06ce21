package server

import (
	"context"
	"net/http"
	"time"

	"github.com/aristath/stockledger/internal/httpjson"
)

// handleHealth reports liveness and whether the database answers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "healthy", http.StatusOK
	if err := s.container.DB.Conn().PingContext(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Health check failed")
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	httpjson.WriteJSON(w, code, map[string]interface{}{
		"status":    status,
		"version":   Version,
		"service":   "stockledger",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleIndex describes the service
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	httpjson.OK(w, map[string]interface{}{
		"service": "stockledger",
		"version": Version,
		"message": "Personal investment ledger API",
		"api":     "/api",
		"health":  "/health",
	})
}
