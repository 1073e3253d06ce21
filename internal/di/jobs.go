package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockledger/internal/config"
	"github.com/aristath/stockledger/internal/reliability"
	"github.com/aristath/stockledger/internal/scheduler"
)

// Daily maintenance runs after the nightly backup
const maintenanceSchedule = "0 0 4 * * *"

// RegisterJobs creates the maintenance jobs and schedules the enabled ones.
// Jobs are always created so they can be triggered through the API.
func RegisterJobs(c *Container, cfg *config.Config, log zerolog.Logger) error {
	var observer scheduler.Observer
	if c.Metrics != nil {
		observer = c.Metrics
	}
	c.Scheduler = scheduler.New(observer, log)

	c.Jobs = &JobInstances{
		Reconcile:   reliability.NewReconcileJob(c.Reconciler),
		Backup:      reliability.NewBackupJob(c.BackupService),
		Maintenance: reliability.NewDailyMaintenanceJob(c.DB, cfg.Backup.Dir, log),
	}

	// Empty schedules still register so RunNow can find the job; they use
	// a descriptor that never fires in practice.
	schedules := []struct {
		schedule string
		job      scheduler.Job
	}{
		{orNever(cfg.ReconcileSchedule), c.Jobs.Reconcile},
		{orNever(backupSchedule(cfg)), c.Jobs.Backup},
		{maintenanceSchedule, c.Jobs.Maintenance},
	}
	for _, s := range schedules {
		if err := c.Scheduler.AddJob(s.schedule, s.job); err != nil {
			return fmt.Errorf("failed to register job %s: %w", s.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(schedules)).Msg("Maintenance jobs registered")
	return nil
}

func backupSchedule(cfg *config.Config) string {
	if !cfg.Backup.Enabled {
		return ""
	}
	return cfg.Backup.Schedule
}

// neverSchedule is Feb 30th, which cron never matches
const neverSchedule = "0 0 0 30 2 *"

func orNever(schedule string) string {
	if schedule == "" {
		return neverSchedule
	}
	return schedule
}
