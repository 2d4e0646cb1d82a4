package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/common"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/handlers"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/httpclient"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/jobs"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/services/enrichment"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/services/fetcher"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/services/scheduler"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/sources/finviz"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/sources/yahoo"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	Storage   interfaces.StorageManager
	Scheduler *scheduler.Scheduler
	Processor *jobs.Processor

	// HTTP handlers
	APIHandler        *handlers.APIHandler
	TickersHandler    *handlers.TickersHandler
	PricesHandler     *handlers.PricesHandler
	NewsHandler       *handlers.NewsHandler
	AggregatesHandler *handlers.AggregatesHandler
	JobsHandler       *handlers.JobsHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storage, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.Storage = storage

	if err := app.seedWatchlist(ctx); err != nil {
		storage.Close()
		return nil, err
	}

	if err := app.initJobs(ctx); err != nil {
		storage.Close()
		return nil, err
	}

	app.initHandlers()

	return app, nil
}

// seedWatchlist registers every watchlist symbol as a tracked ticker.
// Existing tickers keep their watermarks; only descriptive fields are filled.
func (a *App) seedWatchlist(ctx context.Context) error {
	entries, err := common.LoadWatchlist(a.Config)
	if err != nil {
		return fmt.Errorf("failed to load watchlist: %w", err)
	}

	now := time.Now().UTC()
	for _, entry := range entries {
		ticker, err := a.Storage.TickerStorage().Touch(ctx, entry.Symbol, now)
		if err != nil {
			return fmt.Errorf("failed to register ticker %s: %w", entry.Symbol, err)
		}
		if (entry.Name != "" && ticker.Name == "") || (entry.Exchange != "" && ticker.Exchange == "") {
			if ticker.Name == "" {
				ticker.Name = entry.Name
			}
			if ticker.Exchange == "" {
				ticker.Exchange = entry.Exchange
			}
			if err := a.Storage.TickerStorage().Upsert(ctx, ticker); err != nil {
				return fmt.Errorf("failed to update ticker %s: %w", entry.Symbol, err)
			}
		}
	}

	a.Logger.Info().
		Int("tickers", len(entries)).
		Msg("Watchlist loaded")
	return nil
}

// initJobs builds the sources, the processor, and the scheduled jobs.
func (a *App) initJobs(ctx context.Context) error {
	cfg := a.Config

	retry := &jobs.RetryPolicy{
		MaxAttempts:       cfg.Fetch.MaxRetries,
		InitialBackoff:    cfg.Fetch.InitialBackoff,
		MaxBackoff:        cfg.Fetch.MaxBackoff,
		BackoffMultiplier: 2.0,
	}

	apiClient := httpclient.NewDefaultHTTPClient(cfg.Fetch.RequestTimeout)
	browserClient, err := httpclient.NewBrowserClient(cfg.Fetch.RequestTimeout, cfg.Fetch.UserAgentRotation)
	if err != nil {
		return fmt.Errorf("failed to create browser client: %w", err)
	}

	priceSource := yahoo.NewPriceClient(
		yahoo.WithHTTPClient(apiClient),
		yahoo.WithLogger(a.Logger),
		yahoo.WithRateLimit(cfg.Fetch.RateLimit),
		yahoo.WithLookback(time.Duration(cfg.Fetch.PriceLookbackDays)*24*time.Hour),
	)

	yahooNews := yahoo.NewNewsScraper(yahoo.NewsScraperConfig{
		MaxScrolls:       cfg.Fetch.YahooMaxPages,
		RenderJavaScript: cfg.Fetch.RenderJavaScript,
		RenderWaitTime:   cfg.Fetch.RenderWaitTime,
	}, browserClient, a.Logger)

	finvizNews := finviz.NewScraper(finviz.ScraperConfig{}, browserClient, a.Logger)

	bodyFetcher := fetcher.New(fetcher.Config{
		Concurrency:    cfg.Fetch.BodyConcurrency,
		RequestTimeout: cfg.Fetch.BodyTimeout,
	}, browserClient, a.Logger)

	// Enrichment providers are optional; without keys articles are stored
	// unannotated and the sweep picks them up once a key is configured.
	var scorer interfaces.SentimentScorer
	if cfg.Sentiment.APIKey != "" {
		scorer, err = enrichment.NewClaudeScorer(&cfg.Sentiment, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create sentiment scorer: %w", err)
		}
	} else {
		a.Logger.Warn().Msg("No Anthropic API key configured, sentiment scoring disabled")
	}

	var embedder interfaces.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder, err = enrichment.NewGeminiEmbedder(ctx, &cfg.Embedding, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
	} else {
		a.Logger.Warn().Msg("No Gemini API key configured, embeddings disabled")
	}

	a.Processor = jobs.NewProcessor(a.Storage, scorer, embedder, a.Logger)

	sched := scheduler.New(a.Storage.JobRunStorage(), a.Logger)
	a.Scheduler = sched

	priceJob := jobs.NewStockPriceJob(a.Storage, priceSource, retry, cfg.Fetch.TickerConcurrency, a.Logger)
	if err := sched.RegisterJob(priceJob, cfg.Jobs.PricesSchedule, cfg.Jobs.RunOnStart); err != nil {
		return fmt.Errorf("failed to register price job: %w", err)
	}

	// Both providers run inside one job: they share the per-ticker news
	// watermark, which only advances when every source delivered.
	newsJob := jobs.NewNewsJob("", a.Storage,
		[]interfaces.NewsListingSource{yahooNews, finvizNews},
		bodyFetcher, a.Processor, retry, cfg.Fetch.TickerConcurrency, cfg.Fetch.NewsLookbackDays, a.Logger)
	if err := sched.RegisterJob(newsJob, cfg.Jobs.NewsSchedule, cfg.Jobs.RunOnStart); err != nil {
		return fmt.Errorf("failed to register news job: %w", err)
	}

	sweep := jobs.NewEnrichmentSweep(a.Processor, cfg.Jobs.EnrichmentLimit, a.Logger)
	if err := sched.RegisterJob(sweep, cfg.Jobs.EnrichmentSchedule, false); err != nil {
		return fmt.Errorf("failed to register enrichment sweep: %w", err)
	}

	aggJob := jobs.NewAggregatesJob(a.Storage, cfg.Fetch.NewsLookbackDays, a.Logger)
	if err := sched.RegisterJob(aggJob, cfg.Jobs.AggregatesSchedule, false); err != nil {
		return fmt.Errorf("failed to register aggregates job: %w", err)
	}

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.TickersHandler = handlers.NewTickersHandler(a.Storage, a.Logger)
	a.PricesHandler = handlers.NewPricesHandler(a.Storage, a.Logger)
	a.NewsHandler = handlers.NewNewsHandler(a.Storage, a.Logger)
	a.AggregatesHandler = handlers.NewAggregatesHandler(a.Storage, a.Logger)
	a.JobsHandler = handlers.NewJobsHandler(a.Scheduler, a.Storage.JobRunStorage(), a.Logger)
}

// Start launches the scheduler.
func (a *App) Start() error {
	return a.Scheduler.Start()
}

// Shutdown stops the scheduler, waits for in-flight jobs, and closes storage.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.Scheduler.Stop(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Scheduler did not stop cleanly")
	}
	if err := a.Storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}
