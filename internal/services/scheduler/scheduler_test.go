package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

type fakeJob struct {
	name     string
	runs     atomic.Int32
	block    chan struct{}
	panicMsg string
}

func (j *fakeJob) Name() string { return j.name }

func (j *fakeJob) Run(ctx context.Context) (*models.JobRun, error) {
	j.runs.Add(1)
	if j.panicMsg != "" {
		panic(j.panicMsg)
	}
	if j.block != nil {
		<-j.block
	}
	run := models.NewJobRun(j.name)
	run.Record("AAPL", models.TickerOutcome{Status: "ok", Stored: 1})
	run.Finish()
	return run, nil
}

type memRunStorage struct {
	mu   sync.Mutex
	runs []*models.JobRun
}

func (m *memRunStorage) Save(ctx context.Context, run *models.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRunStorage) Recent(ctx context.Context, limit int) ([]*models.JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.JobRun{}, m.runs...), nil
}

func (m *memRunStorage) RecentByJob(ctx context.Context, jobName string, limit int) ([]*models.JobRun, error) {
	return m.Recent(ctx, limit)
}

func (m *memRunStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

func TestRegisterJobRejectsBadSchedule(t *testing.T) {
	s := New(nil, arbor.NewLogger())
	err := s.RegisterJob(&fakeJob{name: "prices"}, "not a schedule", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestRegisterJobRejectsDuplicate(t *testing.T) {
	s := New(nil, arbor.NewLogger())
	require.NoError(t, s.RegisterJob(&fakeJob{name: "prices"}, "*/15 * * * *", false))
	err := s.RegisterJob(&fakeJob{name: "prices"}, "*/30 * * * *", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestTriggerJobPersistsRun(t *testing.T) {
	storage := &memRunStorage{}
	s := New(storage, arbor.NewLogger())

	job := &fakeJob{name: "news"}
	require.NoError(t, s.RegisterJob(job, "0 * * * *", false))
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	require.NoError(t, s.TriggerJob("news"))

	require.Eventually(t, func() bool {
		return storage.count() == 1
	}, 3*time.Second, 10*time.Millisecond)

	runs, _ := storage.Recent(context.Background(), 10)
	assert.Equal(t, "news", runs[0].JobName)
	assert.Equal(t, models.JobRunSucceeded, runs[0].Status)
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	s := New(nil, arbor.NewLogger())

	job := &fakeJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.RegisterJob(job, "0 * * * *", false))
	require.NoError(t, s.Start())

	// First trigger blocks inside Run; a second trigger must be refused.
	require.NoError(t, s.TriggerJob("slow"))
	require.Eventually(t, func() bool {
		return job.runs.Load() == 1
	}, 3*time.Second, 10*time.Millisecond)

	err := s.TriggerJob("slow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	close(job.block)
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestPanicIsRecoveredAndRecorded(t *testing.T) {
	storage := &memRunStorage{}
	s := New(storage, arbor.NewLogger())

	job := &fakeJob{name: "flaky", panicMsg: "boom"}
	require.NoError(t, s.RegisterJob(job, "0 * * * *", false))
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	require.NoError(t, s.TriggerJob("flaky"))

	require.Eventually(t, func() bool {
		return storage.count() == 1
	}, 3*time.Second, 10*time.Millisecond)

	runs, _ := storage.Recent(context.Background(), 10)
	assert.Equal(t, models.JobRunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "boom")

	// The scheduler survives and the job can run again.
	require.Eventually(t, func() bool {
		return s.TriggerJob("flaky") == nil
	}, 3*time.Second, 10*time.Millisecond)
}

func TestTriggerAfterStopDoesNotRun(t *testing.T) {
	storage := &memRunStorage{}
	s := New(storage, arbor.NewLogger())

	job := &fakeJob{name: "prices"}
	require.NoError(t, s.RegisterJob(job, "0 * * * *", false))
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop(context.Background()))

	// Once the drain has begun, a trigger must not start a new run.
	_ = s.TriggerJob("prices")

	assert.Never(t, func() bool {
		return job.runs.Load() > 0 || storage.count() > 0
	}, 200*time.Millisecond, 10*time.Millisecond)
}

func TestRunOnStart(t *testing.T) {
	s := New(nil, arbor.NewLogger())

	job := &fakeJob{name: "startup"}
	require.NoError(t, s.RegisterJob(job, "0 * * * *", true))
	require.NoError(t, s.Start())
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool {
		return job.runs.Load() == 1
	}, 3*time.Second, 10*time.Millisecond)

	statuses := s.JobStatuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "startup", statuses[0].Name)
	assert.Equal(t, "0 * * * *", statuses[0].Schedule)
}
