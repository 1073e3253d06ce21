// Package scheduler runs maintenance jobs on cron schedules.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Observer is told about every job run; metrics hook in here
type Observer interface {
	JobFinished(name string, duration time.Duration, err error)
}

// JobStatus is the last known state of a registered job
type JobStatus struct {
	Name     string     `json:"name"`
	Schedule string     `json:"schedule"`
	Next     time.Time  `json:"next_run"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	LastErr  string     `json:"last_error,omitempty"`
	Running  bool       `json:"running"`
}

type entry struct {
	id       cron.EntryID
	job      Job
	schedule string
	mu       sync.Mutex // held while the job runs; overlapping runs are skipped
	lastRun  *time.Time
	lastErr  string
	running  bool
}

// Scheduler manages background jobs
type Scheduler struct {
	cron     *cron.Cron
	observer Observer
	mu       sync.RWMutex
	entries  map[string]*entry
	log      zerolog.Logger
}

// New creates a new scheduler. Schedules carry a leading seconds field.
func New(observer Observer, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		observer: observer,
		entries:  make(map[string]*entry),
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "0 30 3 * * *"       - 03:30 every day
//   - "@daily"             - Midnight
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[job.Name()]; exists {
		return fmt.Errorf("job %s is already registered", job.Name())
	}

	e := &entry{job: job, schedule: schedule}
	id, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(e); err != nil && err != ErrJobBusy {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}
	e.id = id
	s.entries[job.Name()] = e

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// Sentinel errors returned by RunNow
var (
	ErrJobBusy    = errors.New("job is already running")
	ErrUnknownJob = errors.New("unknown job")
)

func (s *Scheduler) run(e *entry) error {
	if !e.mu.TryLock() {
		s.log.Warn().Str("job", e.job.Name()).Msg("Previous run still in progress, skipping")
		return ErrJobBusy
	}
	defer e.mu.Unlock()

	s.setRunning(e, true)
	start := time.Now()
	s.log.Debug().Str("job", e.job.Name()).Msg("Running job")

	err := e.job.Run()
	duration := time.Since(start)

	s.mu.Lock()
	e.running = false
	e.lastRun = &start
	e.lastErr = ""
	if err != nil {
		e.lastErr = err.Error()
	}
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.JobFinished(e.job.Name(), duration, err)
	}
	if err == nil {
		s.log.Debug().Str("job", e.job.Name()).Dur("duration", duration).Msg("Job completed")
	}
	return err
}

func (s *Scheduler) setRunning(e *entry, running bool) {
	s.mu.Lock()
	e.running = running
	s.mu.Unlock()
}

// RunNow executes a registered job immediately (outside schedule).
// It fails if the job is unknown or already running.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w %s", ErrUnknownJob, name)
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.run(e)
}

// Status lists registered jobs ordered by next run
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.entries))
	for _, cronEntry := range s.cron.Entries() {
		for _, e := range s.entries {
			if e.id != cronEntry.ID {
				continue
			}
			out = append(out, JobStatus{
				Name:     e.job.Name(),
				Schedule: e.schedule,
				Next:     cronEntry.Next,
				LastRun:  e.lastRun,
				LastErr:  e.lastErr,
				Running:  e.running,
			})
		}
	}
	return out
}
