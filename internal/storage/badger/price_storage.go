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

// PriceStorage implements the PriceStorage interface for Badger. Price bars
// are fully derived from the source, so upserts overwrite blindly; the
// natural key makes re-ingestion idempotent.
type PriceStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPriceStorage creates a new PriceStorage instance
func NewPriceStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PriceStorage {
	return &PriceStorage{
		db:     db,
		logger: logger,
	}
}

func (s *PriceStorage) Upsert(ctx context.Context, point *models.PricePoint) error {
	if err := point.Validate(); err != nil {
		return err
	}
	point.Ticker = models.NormalizeSymbol(point.Ticker)
	point.Timestamp = point.Timestamp.UTC()
	point.ID = models.PriceKey(point.Ticker, point.Timestamp)
	point.StoredAt = time.Now().UTC()

	if err := s.db.Store().Upsert(point.ID, point); err != nil {
		return fmt.Errorf("failed to upsert price point %s: %w", point.ID, err)
	}
	return nil
}

func (s *PriceStorage) Get(ctx context.Context, ticker string, ts time.Time) (*models.PricePoint, error) {
	var point models.PricePoint
	if err := s.db.Store().Get(models.PriceKey(ticker, ts), &point); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get price point: %w", err)
	}
	return &point, nil
}

func (s *PriceStorage) Exists(ctx context.Context, ticker string, ts time.Time) (bool, error) {
	point, err := s.Get(ctx, ticker, ts)
	if err != nil {
		return false, err
	}
	return point != nil, nil
}

func (s *PriceStorage) Query(ctx context.Context, opts interfaces.QueryOptions) ([]*models.PricePoint, error) {
	query := badgerhold.Where("Ticker").Eq(models.NormalizeSymbol(opts.Ticker))

	if opts.FromDate != "" {
		from, err := time.Parse("2006-01-02", opts.FromDate)
		if err != nil {
			return nil, fmt.Errorf("invalid from date %q: %w", opts.FromDate, err)
		}
		query = query.And("Timestamp").Ge(from.UTC())
	}
	if opts.ToDate != "" {
		to, err := time.Parse("2006-01-02", opts.ToDate)
		if err != nil {
			return nil, fmt.Errorf("invalid to date %q: %w", opts.ToDate, err)
		}
		// Inclusive of the whole end day.
		query = query.And("Timestamp").Lt(to.UTC().Add(24 * time.Hour))
	}

	query = query.SortBy("Timestamp")
	if opts.Offset > 0 {
		query = query.Skip(opts.Offset)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var points []models.PricePoint
	if err := s.db.Store().Find(&points, query); err != nil {
		return nil, fmt.Errorf("failed to query price points: %w", err)
	}

	result := make([]*models.PricePoint, len(points))
	for i := range points {
		result[i] = &points[i]
	}
	return result, nil
}

func (s *PriceStorage) LatestTimestamp(ctx context.Context, ticker string) (time.Time, error) {
	var points []models.PricePoint
	query := badgerhold.Where("Ticker").Eq(models.NormalizeSymbol(ticker)).
		SortBy("Timestamp").Reverse().Limit(1)
	if err := s.db.Store().Find(&points, query); err != nil {
		return time.Time{}, fmt.Errorf("failed to find latest price point for %s: %w", ticker, err)
	}
	if len(points) == 0 {
		return time.Time{}, nil
	}
	return points[0].Timestamp, nil
}

func (s *PriceStorage) CountByTicker(ctx context.Context, ticker string) (int, error) {
	count, err := s.db.Store().Count(&models.PricePoint{}, badgerhold.Where("Ticker").Eq(models.NormalizeSymbol(ticker)))
	if err != nil {
		return 0, fmt.Errorf("failed to count price points for %s: %w", ticker, err)
	}
	return int(count), nil
}
