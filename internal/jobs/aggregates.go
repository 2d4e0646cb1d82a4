package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// AggregatesJobName identifies the daily aggregation job.
const AggregatesJobName = "aggregates"

// AggregatesJob recomputes per-ticker daily sentiment summaries. It resumes
// from the aggregate watermark and always recomputes the current day, since
// articles keep arriving for it. The watermark trails one day behind so the
// most recent complete day is recomputed once more on the next run.
type AggregatesJob struct {
	storage      interfaces.StorageManager
	lookbackDays int
	logger       arbor.ILogger
	now          func() time.Time
}

// NewAggregatesJob creates the aggregation job.
func NewAggregatesJob(storage interfaces.StorageManager, lookbackDays int, logger arbor.ILogger) *AggregatesJob {
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	return &AggregatesJob{
		storage:      storage,
		lookbackDays: lookbackDays,
		logger:       logger,
		now:          time.Now,
	}
}

func (j *AggregatesJob) Name() string {
	return AggregatesJobName
}

func (j *AggregatesJob) Run(ctx context.Context) (*models.JobRun, error) {
	run := models.NewJobRun(AggregatesJobName)

	tickers, err := j.storage.TickerStorage().List(ctx)
	if err != nil {
		run.Fail(fmt.Errorf("failed to list tickers: %w", err))
		return run, err
	}

	for _, ticker := range tickers {
		select {
		case <-ctx.Done():
			run.Fail(ctx.Err())
			return run, ctx.Err()
		default:
		}
		run.Record(ticker.Symbol, j.processTicker(ctx, ticker))
	}

	run.Finish()
	j.logger.Info().
		Int("tickers", len(tickers)).
		Int("stored", run.TotalStored()).
		Str("status", string(run.Status)).
		Msg("Aggregates run complete")
	return run, nil
}

func (j *AggregatesJob) processTicker(ctx context.Context, ticker *models.Ticker) models.TickerOutcome {
	today := j.now().UTC().Format("2006-01-02")
	start := j.startDate(ticker, today)

	outcome := models.TickerOutcome{Status: "ok"}

	for date := start; date <= today; date = nextDate(date) {
		articles, err := j.storage.NewsStorage().ByTickerAndDate(ctx, ticker.Symbol, date)
		if err != nil {
			outcome.Status = "failed"
			outcome.Error = err.Error()
			return outcome
		}
		if len(articles) == 0 {
			outcome.Skipped++
			continue
		}

		record := models.ComputeAggregate(ticker.Symbol, date, articles)
		if err := j.storage.AggregateStorage().Upsert(ctx, record); err != nil {
			outcome.Status = "failed"
			outcome.Error = err.Error()
			return outcome
		}
		outcome.Stored++
	}

	// The current day stays ahead of the watermark so it is recomputed as
	// late articles land.
	yesterday := j.now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	if yesterday >= start {
		if err := j.storage.TickerStorage().AdvanceAggregateWatermark(ctx, ticker.Symbol, yesterday); err != nil {
			j.logger.Error().
				Str("ticker", ticker.Symbol).
				Err(err).
				Msg("Failed to advance aggregate watermark")
		}
	}

	return outcome
}

// startDate is the aggregate watermark bounded below by the lookback window.
func (j *AggregatesJob) startDate(ticker *models.Ticker, today string) string {
	floor := j.now().UTC().AddDate(0, 0, -j.lookbackDays).Format("2006-01-02")
	if ticker.AggregateWatermark > floor {
		return ticker.AggregateWatermark
	}
	return floor
}

func nextDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		// Unreachable for dates produced by this job; step far forward so a
		// corrupt value cannot loop forever.
		return "9999-12-31"
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02")
}
