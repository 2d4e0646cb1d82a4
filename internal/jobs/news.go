package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// NewsJobName identifies the news ingestion job.
const NewsJobName = "news"

// NewsJob pulls article listings from every configured source, fetches the
// bodies, and hands the result to the processor. The news watermark advances
// only when every source delivered for that ticker, so a failed source's
// window is re-scraped on the next run.
type NewsJob struct {
	name         string
	storage      interfaces.StorageManager
	sources      []interfaces.NewsListingSource
	bodyFetcher  interfaces.BodyFetcher
	processor    *Processor
	retry        *RetryPolicy
	concurrency  int
	lookbackDays int
	logger       arbor.ILogger
}

// NewNewsJob creates a news ingestion job. name distinguishes per-provider
// instances when each runs on its own schedule; empty means the default.
func NewNewsJob(name string, storage interfaces.StorageManager, sources []interfaces.NewsListingSource, bodyFetcher interfaces.BodyFetcher, processor *Processor, retry *RetryPolicy, concurrency, lookbackDays int, logger arbor.ILogger) *NewsJob {
	if name == "" {
		name = NewsJobName
	}
	if retry == nil {
		retry = NewRetryPolicy()
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	if lookbackDays <= 0 {
		lookbackDays = 3
	}
	return &NewsJob{
		name:         name,
		storage:      storage,
		sources:      sources,
		bodyFetcher:  bodyFetcher,
		processor:    processor,
		retry:        retry,
		concurrency:  concurrency,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

func (j *NewsJob) Name() string {
	return j.name
}

func (j *NewsJob) Run(ctx context.Context) (*models.JobRun, error) {
	run := models.NewJobRun(j.name)

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
		Msg("News job finished")

	return run, nil
}

// sinceDate resumes from the ticker's watermark, bounded by the lookback
// window so a long outage cannot trigger an unbounded re-scrape.
func (j *NewsJob) sinceDate(ticker *models.Ticker) string {
	floor := time.Now().UTC().AddDate(0, 0, -j.lookbackDays).Format("2006-01-02")
	if ticker.NewsWatermark > floor {
		return ticker.NewsWatermark
	}
	return floor
}

func (j *NewsJob) processTicker(ctx context.Context, ticker *models.Ticker) models.TickerOutcome {
	since := j.sinceDate(ticker)
	outcome := models.TickerOutcome{Status: "ok"}
	allSourcesOK := true
	latestStored := ""

	for _, source := range j.sources {
		var stubs []*models.ArticleStub
		err := j.retry.Execute(ctx, j.logger, func() error {
			var fetchErr error
			stubs, fetchErr = source.FetchListing(ctx, ticker.Symbol, since)
			return fetchErr
		})
		if err != nil {
			allSourcesOK = false
			outcome.Error = fmt.Sprintf("%s: %v", source.Source(), err)
			j.logger.Warn().
				Str("ticker", ticker.Symbol).
				Str("source", string(source.Source())).
				Err(err).
				Msg("News listing fetch failed")
			continue
		}
		outcome.Fetched += len(stubs)
		if len(stubs) == 0 {
			continue
		}

		stubs = j.bodyFetcher.FetchBodies(ctx, stubs)

		stored, latest, err := j.processor.ProcessStubs(ctx, stubs)
		outcome.Stored += stored
		if latest > latestStored {
			latestStored = latest
		}
		if err != nil {
			allSourcesOK = false
			outcome.Error = fmt.Sprintf("%s: %v", source.Source(), err)
			continue
		}
	}

	if !allSourcesOK {
		outcome.Status = "failed"
	}

	// Advance only on a clean sweep across sources; otherwise the failed
	// source's window must be revisited next run.
	if allSourcesOK && latestStored != "" {
		if err := j.storage.TickerStorage().AdvanceNewsWatermark(ctx, ticker.Symbol, latestStored); err != nil {
			j.logger.Error().
				Str("ticker", ticker.Symbol).
				Err(err).
				Msg("Failed to advance news watermark")
		}
	}

	return outcome
}
