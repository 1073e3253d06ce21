package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/stockledger/internal/database"
	"github.com/aristath/stockledger/internal/domain"
	"github.com/aristath/stockledger/internal/events"
	"github.com/aristath/stockledger/internal/httpjson"
	"github.com/aristath/stockledger/internal/scheduler"
)

// SystemHandlers serves host, database and job status
type SystemHandlers struct {
	db          *database.DB
	bus         *events.Bus
	scheduler   *scheduler.Scheduler
	startupTime time.Time
	log         zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(db *database.DB, bus *events.Bus, sched *scheduler.Scheduler, startupTime time.Time, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:          db,
		bus:         bus,
		scheduler:   sched,
		startupTime: startupTime,
		log:         log.With().Str("component", "system_handlers").Logger(),
	}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status           string  `json:"status"`
	UptimeSeconds    int64   `json:"uptime_seconds"`
	GoVersion        string  `json:"go_version"`
	Goroutines       int     `json:"goroutines"`
	CPUPercent       float64 `json:"cpu_percent"`
	RAMPercent       float64 `json:"ram_percent"`
	DiskFreeMB       float64 `json:"disk_free_mb"`
	DiskUsedPercent  float64 `json:"disk_used_percent"`
	EventSubscribers int     `json:"event_subscribers"`
}

// HandleSystemStatus returns process and host statistics
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.getSystemStats()
	response := SystemStatusResponse{
		Status:           "healthy",
		UptimeSeconds:    int64(time.Since(h.startupTime).Seconds()),
		GoVersion:        runtime.Version(),
		Goroutines:       runtime.NumGoroutine(),
		CPUPercent:       cpuPercent,
		RAMPercent:       ramPercent,
		EventSubscribers: h.bus.SubscriberCount(),
	}

	if usage, err := disk.Usage(filepath.Dir(h.db.Path())); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	} else {
		response.DiskFreeMB = float64(usage.Free) / 1024 / 1024
		response.DiskUsedPercent = usage.UsedPercent
	}

	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Database health check failed")
		response.Status = "degraded"
	}

	httpjson.OK(w, response)
}

// HandleDatabaseStats returns file size, page and row statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetStats(r.Context())
	if err != nil {
		httpjson.Error(w, h.log, domain.Store(err, "failed to read database stats"))
		return
	}
	httpjson.OK(w, stats)
}

// HandleJobsStatus returns scheduler job status
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	httpjson.OK(w, h.scheduler.Status())
}

// HandleRunJob runs a registered job immediately and waits for it
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	h.log.Info().Str("job", name).Msg("Manual job run triggered")

	if err := h.scheduler.RunNow(name); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrUnknownJob):
			httpjson.Error(w, h.log, domain.NotFound("job %s", name))
		case errors.Is(err, scheduler.ErrJobBusy):
			httpjson.Error(w, h.log, domain.Conflict("job %s is already running", name))
		default:
			httpjson.Error(w, h.log, domain.Store(err, "job %s failed", name))
		}
		return
	}
	httpjson.Message(w, "job "+name+" completed")
}

// getSystemStats calculates CPU and RAM usage percentages
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	// 100ms sample keeps the endpoint responsive
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
