package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// StockPriceJobName identifies the price ingestion job in schedules and
// run records.
const StockPriceJobName = "stock_prices"

// StockPriceJob fetches intraday bars for every tracked ticker. Each ticker
// resumes from its price watermark; a ticker failure never aborts the rest.
type StockPriceJob struct {
	storage     interfaces.StorageManager
	source      interfaces.PriceSource
	retry       *RetryPolicy
	concurrency int
	logger      arbor.ILogger
}

// NewStockPriceJob creates the price ingestion job.
func NewStockPriceJob(storage interfaces.StorageManager, source interfaces.PriceSource, retry *RetryPolicy, concurrency int, logger arbor.ILogger) *StockPriceJob {
	if retry == nil {
		retry = NewRetryPolicy()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &StockPriceJob{
		storage:     storage,
		source:      source,
		retry:       retry,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (j *StockPriceJob) Name() string {
	return StockPriceJobName
}

// Run fans out over the tracked tickers with bounded concurrency.
func (j *StockPriceJob) Run(ctx context.Context) (*models.JobRun, error) {
	run := models.NewJobRun(StockPriceJobName)

	tickers, err := j.storage.TickerStorage().List(ctx)
	if err != nil {
		run.Fail(fmt.Errorf("failed to list tickers: %w", err))
		return run, err
	}
	if len(tickers) == 0 {
		run.Finish()
		return run, nil
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	sem := make(chan struct{}, j.concurrency)

	for _, ticker := range tickers {
		wg.Add(1)
		go func(ticker *models.Ticker) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			outcome := j.processTicker(ctx, ticker)

			mu.Lock()
			run.Record(ticker.Symbol, outcome)
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	run.Finish()
	j.logger.Info().
		Int("tickers", len(tickers)).
		Int("stored", run.TotalStored()).
		Str("status", string(run.Status)).
		Msg("Price job finished")

	return run, nil
}

// processTicker fetches and stores bars for one ticker, then advances its
// watermark to the newest durably stored bar.
func (j *StockPriceJob) processTicker(ctx context.Context, ticker *models.Ticker) models.TickerOutcome {
	var bars []*models.PricePoint
	err := j.retry.Execute(ctx, j.logger, func() error {
		var fetchErr error
		bars, fetchErr = j.source.FetchBars(ctx, ticker.Symbol, ticker.PriceWatermark)
		return fetchErr
	})
	if err != nil {
		return models.TickerOutcome{Status: "failed", Error: err.Error()}
	}

	if _, err := j.storage.TickerStorage().Touch(ctx, ticker.Symbol, time.Now().UTC()); err != nil {
		j.logger.Warn().
			Str("ticker", ticker.Symbol).
			Err(err).
			Msg("Failed to update ticker last-seen")
	}

	outcome := models.TickerOutcome{Status: "ok", Fetched: len(bars)}
	if len(bars) == 0 {
		return outcome
	}

	// Store oldest first so the watermark always covers a contiguous prefix
	// of the fetched range.
	sort.Slice(bars, func(a, b int) bool {
		return bars[a].Timestamp.Before(bars[b].Timestamp)
	})

	seen := make(map[string]bool, len(bars))
	var lastStored time.Time

	for _, bar := range bars {
		if bar.ID == "" {
			bar.ID = models.PriceKey(bar.Ticker, bar.Timestamp)
		}
		if seen[bar.ID] {
			outcome.Skipped++
			continue
		}
		seen[bar.ID] = true

		if err := j.storage.PriceStorage().Upsert(ctx, bar); err != nil {
			outcome.Status = "failed"
			outcome.Error = err.Error()
			break
		}
		outcome.Stored++
		lastStored = bar.Timestamp
	}

	if !lastStored.IsZero() {
		if err := j.storage.TickerStorage().AdvancePriceWatermark(ctx, ticker.Symbol, lastStored); err != nil {
			j.logger.Error().
				Str("ticker", ticker.Symbol).
				Err(err).
				Msg("Failed to advance price watermark")
		}
	}

	return outcome
}
