package server

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/httpjson"
	"github.com/aristath/stockledger/internal/reliability"
)

// MaintenanceHandlers exposes reconciliation and backups over HTTP
type MaintenanceHandlers struct {
	reconciler *reliability.Reconciler
	backups    *reliability.BackupService
	log        zerolog.Logger
}

// NewMaintenanceHandlers creates maintenance handlers
func NewMaintenanceHandlers(reconciler *reliability.Reconciler, backups *reliability.BackupService, log zerolog.Logger) *MaintenanceHandlers {
	return &MaintenanceHandlers{
		reconciler: reconciler,
		backups:    backups,
		log:        log.With().Str("component", "maintenance_handlers").Logger(),
	}
}

// HandleReconcile rebuilds positions from transaction history.
// ?dry_run=true reports drift without repairing it.
func (h *MaintenanceHandlers) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httpjson.Error(w, h.log, domain.Validation("dry_run must be a boolean"))
			return
		}
		dryRun = parsed
	}

	report, err := h.reconciler.Run(r.Context(), !dryRun)
	if err != nil {
		httpjson.Error(w, h.log, err)
		return
	}
	httpjson.OK(w, report)
}

// HandleBackup creates a backup archive now
func (h *MaintenanceHandlers) HandleBackup(w http.ResponseWriter, r *http.Request) {
	result, err := h.backups.CreateBackup(r.Context())
	if err != nil {
		httpjson.Error(w, h.log, domain.Store(err, "backup failed"))
		return
	}
	httpjson.Created(w, result, "backup created")
}

// HandleListBackups lists local and remote archives, newest first
func (h *MaintenanceHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		httpjson.Error(w, h.log, domain.Store(err, "failed to list backups"))
		return
	}
	httpjson.OK(w, backups)
}
