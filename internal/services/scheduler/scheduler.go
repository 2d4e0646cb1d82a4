// Package scheduler runs the ingestion jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// Job is a unit of scheduled work. Run returns the run record it built;
// the scheduler persists it.
type Job interface {
	Name() string
	Run(ctx context.Context) (*models.JobRun, error)
}

// JobStatus is a point-in-time snapshot of a registered job.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	IsRunning bool       `json:"is_running"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type jobEntry struct {
	job        Job
	schedule   string
	runOnStart bool
	cronID     cron.EntryID
	isRunning  bool
	lastRun    *time.Time
	lastError  string
}

// Scheduler triggers jobs on their cron schedules. Each job skips a tick
// that fires while its previous run is still in flight; different jobs run
// concurrently.
type Scheduler struct {
	cron       *cron.Cron
	runStorage interfaces.JobRunStorage
	logger     arbor.ILogger

	jobMu   sync.Mutex
	jobs    map[string]*jobEntry
	running bool
	wg      sync.WaitGroup
}

// New creates a scheduler. runStorage may be nil, in which case run records
// are not persisted.
func New(runStorage interfaces.JobRunStorage, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		runStorage: runStorage,
		logger:     logger,
		jobs:       make(map[string]*jobEntry),
	}
}

// RegisterJob adds a job on the given cron schedule. When runOnStart is set
// the job also fires once right after Start.
func (s *Scheduler) RegisterJob(job Job, schedule string, runOnStart bool) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, job.Name(), err)
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}

	entry := &jobEntry{
		job:        job,
		schedule:   schedule,
		runOnStart: runOnStart,
	}

	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeJob(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add job to cron: %w", err)
	}

	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info().
		Str("job_name", name).
		Str("schedule", schedule).
		Bool("run_on_start", runOnStart).
		Msg("Job registered")

	return nil
}

// Start begins firing schedules and kicks off run-on-start jobs.
func (s *Scheduler) Start() error {
	s.jobMu.Lock()
	if s.running {
		s.jobMu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true

	var startupJobs []string
	for name, entry := range s.jobs {
		if entry.runOnStart {
			startupJobs = append(startupJobs, name)
		}
	}
	s.jobMu.Unlock()

	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")

	for _, name := range startupJobs {
		go s.executeJob(name)
	}

	return nil
}

// Stop halts the cron timers and waits for in-flight jobs, up to the
// context deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.jobMu.Lock()
	if !s.running {
		s.jobMu.Unlock()
		return nil
	}
	s.running = false
	s.jobMu.Unlock()

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Scheduler stopped with jobs still in flight")
		return ctx.Err()
	}
}

// TriggerJob fires a job immediately, outside its schedule.
func (s *Scheduler) TriggerJob(name string) error {
	s.jobMu.Lock()
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		return fmt.Errorf("job %s not found", name)
	}
	if entry.isRunning {
		s.jobMu.Unlock()
		return fmt.Errorf("job %s is already running", name)
	}
	s.jobMu.Unlock()

	go s.executeJob(name)
	return nil
}

// JobStatuses returns a snapshot of every registered job.
func (s *Scheduler) JobStatuses() []JobStatus {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	entries := s.cron.Entries()
	nextByID := make(map[cron.EntryID]time.Time, len(entries))
	for _, e := range entries {
		nextByID[e.ID] = e.Next
	}

	statuses := make([]JobStatus, 0, len(s.jobs))
	for name, entry := range s.jobs {
		status := JobStatus{
			Name:      name,
			Schedule:  entry.schedule,
			IsRunning: entry.isRunning,
			LastRun:   entry.lastRun,
			LastError: entry.lastError,
		}
		if next, ok := nextByID[entry.cronID]; ok && !next.IsZero() {
			status.NextRun = &next
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// executeJob wraps one job execution with overlap skipping, panic recovery,
// and run record persistence.
func (s *Scheduler) executeJob(name string) {
	s.jobMu.Lock()
	if !s.running {
		// Stop has begun draining; no new runs may start.
		s.jobMu.Unlock()
		s.logger.Warn().Str("job_name", name).Msg("Scheduler stopping, run not started")
		return
	}
	entry, exists := s.jobs[name]
	if !exists {
		s.jobMu.Unlock()
		s.logger.Warn().Str("job_name", name).Msg("Job not found")
		return
	}
	if entry.isRunning {
		// The previous run is still in flight; this tick is dropped, not
		// queued, so a slow run cannot build a backlog.
		s.jobMu.Unlock()
		s.logger.Warn().Str("job_name", name).Msg("Previous run still in flight, skipping tick")
		return
	}
	entry.isRunning = true
	job := entry.job
	// Registered with the wait group before jobMu is released, so a Stop
	// that observes running == false can never miss this run in its drain.
	s.wg.Add(1)
	s.jobMu.Unlock()

	started := time.Now()

	defer func() {
		finished := time.Now()

		var panicErr error
		if r := recover(); r != nil {
			panicErr = fmt.Errorf("panic: %v", r)
			s.logger.Error().
				Str("job_name", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in job execution")

			run := models.NewJobRun(name)
			run.StartedAt = started
			run.Fail(panicErr)
			s.persistRun(run)
		}

		s.jobMu.Lock()
		entry.isRunning = false
		entry.lastRun = &finished
		if panicErr != nil {
			entry.lastError = panicErr.Error()
		}
		s.jobMu.Unlock()

		s.wg.Done()
	}()

	s.logger.Info().Str("job_name", name).Msg("Job execution started")

	run, err := job.Run(context.Background())
	if run != nil {
		s.persistRun(run)
	}

	s.jobMu.Lock()
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.jobMu.Unlock()

	if err != nil {
		s.logger.Error().
			Str("job_name", name).
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("Job execution failed")
	} else {
		s.logger.Info().
			Str("job_name", name).
			Dur("duration", time.Since(started)).
			Msg("Job execution completed")
	}
}

func (s *Scheduler) persistRun(run *models.JobRun) {
	if s.runStorage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.runStorage.Save(ctx, run); err != nil {
		s.logger.Warn().Err(err).Str("job_name", run.JobName).Msg("Failed to persist job run")
	}
}
