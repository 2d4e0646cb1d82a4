package interfaces

import (
	"context"
	"time"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// StorageManager aggregates the per-collection storage interfaces backed by a
// single document store. All jobs persist through this abstraction only.
type StorageManager interface {
	TickerStorage() TickerStorage
	PriceStorage() PriceStorage
	NewsStorage() NewsStorage
	AggregateStorage() AggregateStorage
	JobRunStorage() JobRunStorage
	Close() error
}

// TickerStorage persists ticker documents and their watermarks. Watermark
// advancement is single-writer per ticker: only the fan-in owner of a job run
// calls the advance methods, and they never regress a watermark.
type TickerStorage interface {
	Upsert(ctx context.Context, ticker *models.Ticker) error
	Get(ctx context.Context, symbol string) (*models.Ticker, error)
	List(ctx context.Context) ([]*models.Ticker, error)

	// Touch creates the ticker on first sight and updates last-seen.
	Touch(ctx context.Context, symbol string, seen time.Time) (*models.Ticker, error)

	AdvancePriceWatermark(ctx context.Context, symbol string, ts time.Time) error
	AdvanceNewsWatermark(ctx context.Context, symbol string, date string) error
	AdvanceAggregateWatermark(ctx context.Context, symbol string, date string) error
}

// PriceStorage persists OHLCV bars. Upsert is a blind overwrite keyed by
// (ticker, timestamp); bars are fully derived from the source.
type PriceStorage interface {
	Upsert(ctx context.Context, point *models.PricePoint) error
	Get(ctx context.Context, ticker string, ts time.Time) (*models.PricePoint, error)
	Exists(ctx context.Context, ticker string, ts time.Time) (bool, error)
	Query(ctx context.Context, opts QueryOptions) ([]*models.PricePoint, error)
	LatestTimestamp(ctx context.Context, ticker string) (time.Time, error)
	CountByTicker(ctx context.Context, ticker string) (int, error)
}

// NewsStorage persists articles. UpsertMerge is compare-and-merge: concurrent
// upserts to the same key converge to a single document with field-level
// last-merge-wins, and populated fields never regress to empty.
type NewsStorage interface {
	UpsertMerge(ctx context.Context, article *models.NewsArticle) (*models.NewsArticle, error)
	Get(ctx context.Context, id string) (*models.NewsArticle, error)
	Query(ctx context.Context, opts QueryOptions) ([]*models.NewsArticle, error)
	ByTickerAndDate(ctx context.Context, ticker, date string) ([]*models.NewsArticle, error)
	LatestDate(ctx context.Context, ticker string) (string, error)
	NeedingEnrichment(ctx context.Context, limit int) ([]*models.NewsArticle, error)
	CountByTicker(ctx context.Context, ticker string) (int, error)
}

// AggregateStorage persists ticker-day summaries; overwrite upsert.
type AggregateStorage interface {
	Upsert(ctx context.Context, record *models.AggregateRecord) error
	Get(ctx context.Context, ticker, date string) (*models.AggregateRecord, error)
	Query(ctx context.Context, opts QueryOptions) ([]*models.AggregateRecord, error)
	LatestDate(ctx context.Context, ticker string) (string, error)
}

// JobRunStorage persists job run summaries for operator visibility.
type JobRunStorage interface {
	Save(ctx context.Context, run *models.JobRun) error
	Recent(ctx context.Context, limit int) ([]*models.JobRun, error)
	RecentByJob(ctx context.Context, jobName string, limit int) ([]*models.JobRun, error)
}

// QueryOptions filters read queries from the jobs and the read API.
type QueryOptions struct {
	Ticker   string
	FromDate string // YYYY-MM-DD inclusive
	ToDate   string // YYYY-MM-DD inclusive
	Limit    int
	Offset   int
}
