package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// JobRunStorage implements the JobRunStorage interface for Badger
type JobRunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobRunStorage creates a new JobRunStorage instance
func NewJobRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobRunStorage {
	return &JobRunStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobRunStorage) Save(ctx context.Context, run *models.JobRun) error {
	if run.ID == "" {
		return fmt.Errorf("job run ID is required")
	}
	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to save job run %s: %w", run.ID, err)
	}
	return nil
}

func (s *JobRunStorage) Recent(ctx context.Context, limit int) ([]*models.JobRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.JobRun
	query := (&badgerhold.Query{}).SortBy("StartedAt").Reverse().Limit(limit)
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to query job runs: %w", err)
	}

	result := make([]*models.JobRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

func (s *JobRunStorage) RecentByJob(ctx context.Context, jobName string, limit int) ([]*models.JobRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.JobRun
	query := badgerhold.Where("JobName").Eq(jobName).
		SortBy("StartedAt").Reverse().Limit(limit)
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to query job runs for %s: %w", jobName, err)
	}

	result := make([]*models.JobRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}
