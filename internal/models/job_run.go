package models

import (
	"time"

	"github.com/google/uuid"
)

// JobRunStatus is the terminal disposition of a scheduled job run.
type JobRunStatus string

const (
	JobRunRunning   JobRunStatus = "running"
	JobRunSucceeded JobRunStatus = "succeeded"
	JobRunPartial   JobRunStatus = "partial"
	JobRunFailed    JobRunStatus = "failed"
)

// TickerOutcome records what a job run did for one ticker. A failure here is
// isolated: it never aborts the run for the remaining tickers.
type TickerOutcome struct {
	Status  string `json:"status"` // "ok" or "failed"
	Fetched int    `json:"fetched"`
	Stored  int    `json:"stored"`
	Skipped int    `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// JobRun is the persisted summary of one scheduler-triggered job execution.
type JobRun struct {
	ID         string                   `json:"id" badgerhold:"key"`
	JobName    string                   `json:"job_name" badgerhold:"index"`
	Status     JobRunStatus             `json:"status"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at,omitempty"`
	Outcomes   map[string]TickerOutcome `json:"outcomes,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// NewJobRun starts a run record for the named job.
func NewJobRun(jobName string) *JobRun {
	return &JobRun{
		ID:        uuid.New().String(),
		JobName:   jobName,
		Status:    JobRunRunning,
		StartedAt: time.Now().UTC(),
		Outcomes:  make(map[string]TickerOutcome),
	}
}

// Record stores the outcome for one ticker.
func (r *JobRun) Record(symbol string, outcome TickerOutcome) {
	r.Outcomes[symbol] = outcome
}

// Finish closes the run, deriving the terminal status from the per-ticker
// outcomes: failed when every ticker failed, partial when some did.
func (r *JobRun) Finish() {
	r.FinishedAt = time.Now().UTC()

	failed := 0
	for _, o := range r.Outcomes {
		if o.Status == "failed" {
			failed++
		}
	}

	switch {
	case len(r.Outcomes) > 0 && failed == len(r.Outcomes):
		r.Status = JobRunFailed
	case failed > 0:
		r.Status = JobRunPartial
	default:
		r.Status = JobRunSucceeded
	}
}

// Fail closes the run with a run-level error that prevented ticker fan-out.
func (r *JobRun) Fail(err error) {
	r.FinishedAt = time.Now().UTC()
	r.Status = JobRunFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// TotalStored sums stored counts across tickers.
func (r *JobRun) TotalStored() int {
	total := 0
	for _, o := range r.Outcomes {
		total += o.Stored
	}
	return total
}
