package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// AggregateStorage implements the AggregateStorage interface for Badger.
// Aggregates are pure functions of the underlying articles, so upserts
// overwrite the prior record for the ticker-day.
type AggregateStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAggregateStorage creates a new AggregateStorage instance
func NewAggregateStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AggregateStorage {
	return &AggregateStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AggregateStorage) Upsert(ctx context.Context, record *models.AggregateRecord) error {
	if record.Ticker == "" || record.Date == "" {
		return fmt.Errorf("aggregate record missing ticker or date")
	}
	record.Ticker = models.NormalizeSymbol(record.Ticker)
	record.ID = models.AggregateKey(record.Ticker, record.Date)
	if record.ComputedAt.IsZero() {
		record.ComputedAt = time.Now().UTC()
	}

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to upsert aggregate %s: %w", record.ID, err)
	}
	return nil
}

func (s *AggregateStorage) Get(ctx context.Context, ticker, date string) (*models.AggregateRecord, error) {
	var record models.AggregateRecord
	if err := s.db.Store().Get(models.AggregateKey(ticker, date), &record); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get aggregate: %w", err)
	}
	return &record, nil
}

func (s *AggregateStorage) Query(ctx context.Context, opts interfaces.QueryOptions) ([]*models.AggregateRecord, error) {
	query := badgerhold.Where("Ticker").Eq(models.NormalizeSymbol(opts.Ticker))

	if opts.FromDate != "" {
		query = query.And("Date").Ge(opts.FromDate)
	}
	if opts.ToDate != "" {
		query = query.And("Date").Le(opts.ToDate)
	}

	query = query.SortBy("Date")
	if opts.Offset > 0 {
		query = query.Skip(opts.Offset)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var records []models.AggregateRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to query aggregates: %w", err)
	}

	result := make([]*models.AggregateRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

func (s *AggregateStorage) LatestDate(ctx context.Context, ticker string) (string, error) {
	var records []models.AggregateRecord
	query := badgerhold.Where("Ticker").Eq(models.NormalizeSymbol(ticker)).
		SortBy("Date").Reverse().Limit(1)
	if err := s.db.Store().Find(&records, query); err != nil {
		return "", fmt.Errorf("failed to find latest aggregate for %s: %w", ticker, err)
	}
	if len(records) == 0 {
		return "", nil
	}
	return records[0].Date, nil
}
