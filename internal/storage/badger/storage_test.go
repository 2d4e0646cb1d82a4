package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	tmpDir := t.TempDir()

	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return &BadgerDB{store: store}
}

func TestTickerWatermarkMonotonicity(t *testing.T) {
	db := newTestDB(t)
	logger := arbor.NewLogger()
	storage := NewTickerStorage(db, logger)
	ctx := context.Background()

	now := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	if _, err := storage.Touch(ctx, "aapl", now); err != nil {
		t.Fatalf("Failed to touch ticker: %v", err)
	}

	// Advance, then attempt to regress. The regression must be a no-op.
	if err := storage.AdvancePriceWatermark(ctx, "AAPL", now); err != nil {
		t.Fatalf("Failed to advance price watermark: %v", err)
	}
	if err := storage.AdvancePriceWatermark(ctx, "AAPL", now.Add(-time.Hour)); err != nil {
		t.Fatalf("Regressing advance returned error: %v", err)
	}

	ticker, err := storage.Get(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if !ticker.PriceWatermark.Equal(now) {
		t.Errorf("Price watermark regressed: got %v, want %v", ticker.PriceWatermark, now)
	}

	// Same invariant for the date-string watermarks.
	if err := storage.AdvanceNewsWatermark(ctx, "AAPL", "2026-08-28"); err != nil {
		t.Fatal(err)
	}
	if err := storage.AdvanceNewsWatermark(ctx, "AAPL", "2026-08-27"); err != nil {
		t.Fatal(err)
	}
	if err := storage.AdvanceAggregateWatermark(ctx, "AAPL", "2026-08-27"); err != nil {
		t.Fatal(err)
	}

	ticker, err = storage.Get(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if ticker.NewsWatermark != "2026-08-28" {
		t.Errorf("News watermark regressed: got %s", ticker.NewsWatermark)
	}
	if ticker.AggregateWatermark != "2026-08-27" {
		t.Errorf("Aggregate watermark wrong: got %s", ticker.AggregateWatermark)
	}
}

func TestTickerTouchCreatesOnFirstSight(t *testing.T) {
	db := newTestDB(t)
	storage := NewTickerStorage(db, arbor.NewLogger())
	ctx := context.Background()

	first := time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC)
	later := first.Add(24 * time.Hour)

	ticker, err := storage.Touch(ctx, "tsla", first)
	if err != nil {
		t.Fatal(err)
	}
	if ticker.Symbol != "TSLA" {
		t.Errorf("Expected normalized symbol TSLA, got %s", ticker.Symbol)
	}
	if !ticker.FirstSeen.Equal(first) {
		t.Errorf("FirstSeen not set on create")
	}

	ticker, err = storage.Touch(ctx, "TSLA", later)
	if err != nil {
		t.Fatal(err)
	}
	if !ticker.FirstSeen.Equal(first) {
		t.Errorf("FirstSeen changed on second touch")
	}
	if !ticker.LastSeen.Equal(later) {
		t.Errorf("LastSeen not advanced: got %v", ticker.LastSeen)
	}
}

func TestPriceUpsertIdempotent(t *testing.T) {
	db := newTestDB(t)
	storage := NewPriceStorage(db, arbor.NewLogger())
	ctx := context.Background()

	ts := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)
	bar := &models.PricePoint{
		Ticker:    "AAPL",
		Timestamp: ts,
		Open:      230.1,
		High:      231.5,
		Low:       229.8,
		Close:     231.0,
		Volume:    1_200_000,
	}

	// Storing the same bar twice must leave exactly one document.
	if err := storage.Upsert(ctx, bar); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}
	bar2 := *bar
	bar2.Close = 231.2
	if err := storage.Upsert(ctx, &bar2); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	count, err := storage.CountByTicker(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 bar after duplicate upsert, got %d", count)
	}

	stored, err := storage.Get(ctx, "AAPL", ts)
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil {
		t.Fatal("Bar not found after upsert")
	}
	if stored.Close != 231.2 {
		t.Errorf("Re-upsert did not overwrite: close = %f", stored.Close)
	}

	exists, err := storage.Exists(ctx, "AAPL", ts)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("Exists returned false for stored bar")
	}
}

func TestPriceQueryAndLatest(t *testing.T) {
	db := newTestDB(t)
	storage := NewPriceStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		bar := &models.PricePoint{
			Ticker:    "MSFT",
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100.5,
			Volume:    1000,
		}
		if err := storage.Upsert(ctx, bar); err != nil {
			t.Fatal(err)
		}
	}
	// Another ticker's bar must not leak into MSFT queries.
	other := &models.PricePoint{Ticker: "AAPL", Timestamp: base, Open: 1, High: 1, Low: 1, Close: 1}
	if err := storage.Upsert(ctx, other); err != nil {
		t.Fatal(err)
	}

	bars, err := storage.Query(ctx, interfaces.QueryOptions{
		Ticker:   "MSFT",
		FromDate: "2026-08-27",
		ToDate:   "2026-08-29",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(bars) != 3 {
		t.Fatalf("Expected 3 bars in range, got %d", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp.Before(bars[i-1].Timestamp) {
			t.Error("Query results not sorted by timestamp")
		}
	}

	latest, err := storage.LatestTimestamp(ctx, "MSFT")
	if err != nil {
		t.Fatal(err)
	}
	want := base.Add(4 * 24 * time.Hour)
	if !latest.Equal(want) {
		t.Errorf("LatestTimestamp = %v, want %v", latest, want)
	}
}

func TestNewsConcurrentUpsertMergeConverges(t *testing.T) {
	db := newTestDB(t)
	storage := NewNewsStorage(db, arbor.NewLogger())
	ctx := context.Background()

	id := models.ArticleKey("AAPL", models.SourceYahoo, "2026-08-28", "Apple Beats Estimates")
	body := "full article text"

	// Three writers race on the same key: a bare listing, a body fetch
	// result, and an enrichment result. The merged document must carry
	// every populated field regardless of arrival order.
	variants := []*models.NewsArticle{
		{
			Ticker: "AAPL", Source: models.SourceYahoo, Date: "2026-08-28",
			Title: "Apple Beats Estimates", URL: "https://example.com/a",
		},
		{
			Ticker: "AAPL", Source: models.SourceYahoo, Date: "2026-08-28",
			Title: "Apple Beats Estimates", URL: "https://example.com/a",
			Body: &body, BodyFetched: true,
		},
		{
			Ticker: "AAPL", Source: models.SourceYahoo, Date: "2026-08-28",
			Title: "Apple Beats Estimates", URL: "https://example.com/a",
			Sentiment: &models.Sentiment{Score: 0.4},
			Embedding: []float32{0.1, 0.2, 0.3}, EmbeddingModel: "gemini-embedding-001",
		},
	}

	const rounds = 20
	var wg sync.WaitGroup
	errs := make(chan error, rounds*len(variants))
	for i := 0; i < rounds; i++ {
		for _, v := range variants {
			wg.Add(1)
			go func(v models.NewsArticle) {
				defer wg.Done()
				if _, err := storage.UpsertMerge(ctx, &v); err != nil {
					errs <- err
				}
			}(*v)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("UpsertMerge failed: %v", err)
	}

	count, err := storage.CountByTicker(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 document after concurrent merges, got %d", count)
	}

	final, err := storage.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if final == nil {
		t.Fatal("Merged article not found")
	}
	if final.Body == nil || *final.Body != body {
		t.Error("Body lost in merge")
	}
	if !final.BodyFetched {
		t.Error("BodyFetched lost in merge")
	}
	if final.Sentiment == nil || final.Sentiment.Score != 0.4 {
		t.Error("Sentiment lost in merge")
	}
	if len(final.Embedding) != 3 {
		t.Error("Embedding lost in merge")
	}
}

func TestNewsNeedingEnrichment(t *testing.T) {
	db := newTestDB(t)
	storage := NewNewsStorage(db, arbor.NewLogger())
	ctx := context.Background()

	body := "text"
	articles := []*models.NewsArticle{
		// Body fetched but unenriched: eligible.
		{Ticker: "AAPL", Source: models.SourceYahoo, Date: "2026-08-28", Title: "a1", Body: &body, BodyFetched: true},
		// No body yet: not eligible.
		{Ticker: "AAPL", Source: models.SourceYahoo, Date: "2026-08-28", Title: "a2"},
		// Fully enriched: not eligible.
		{
			Ticker: "AAPL", Source: models.SourceFinviz, Date: "2026-08-28", Title: "a3",
			Body: &body, BodyFetched: true,
			Sentiment: &models.Sentiment{Score: 0.2}, Embedding: []float32{1},
		},
	}
	for _, a := range articles {
		if _, err := storage.UpsertMerge(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := storage.NeedingEnrichment(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 article needing enrichment, got %d", len(pending))
	}
	if pending[0].Title != "a1" {
		t.Errorf("Wrong article selected: %s", pending[0].Title)
	}
}

func TestNewsQueryByDateRange(t *testing.T) {
	db := newTestDB(t)
	storage := NewNewsStorage(db, arbor.NewLogger())
	ctx := context.Background()

	dates := []string{"2026-08-25", "2026-08-26", "2026-08-27", "2026-08-28"}
	for i, d := range dates {
		a := &models.NewsArticle{
			Ticker: "TSLA", Source: models.SourceFinviz, Date: d,
			Title: fmt.Sprintf("headline %d", i),
		}
		if _, err := storage.UpsertMerge(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	results, err := storage.Query(ctx, interfaces.QueryOptions{
		Ticker:   "TSLA",
		FromDate: "2026-08-26",
		ToDate:   "2026-08-27",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 articles in range, got %d", len(results))
	}

	latest, err := storage.LatestDate(ctx, "TSLA")
	if err != nil {
		t.Fatal(err)
	}
	if latest != "2026-08-28" {
		t.Errorf("LatestDate = %s, want 2026-08-28", latest)
	}

	byDay, err := storage.ByTickerAndDate(ctx, "TSLA", "2026-08-26")
	if err != nil {
		t.Fatal(err)
	}
	if len(byDay) != 1 {
		t.Fatalf("Expected 1 article on 2026-08-26, got %d", len(byDay))
	}
}

func TestAggregateUpsertOverwrites(t *testing.T) {
	db := newTestDB(t)
	storage := NewAggregateStorage(db, arbor.NewLogger())
	ctx := context.Background()

	first := &models.AggregateRecord{Ticker: "AAPL", Date: "2026-08-28", Attention: 3, BullishCount: 1}
	if err := storage.Upsert(ctx, first); err != nil {
		t.Fatal(err)
	}
	// Recompute with more articles; the record is fully replaced.
	second := &models.AggregateRecord{Ticker: "AAPL", Date: "2026-08-28", Attention: 7, BullishCount: 4}
	if err := storage.Upsert(ctx, second); err != nil {
		t.Fatal(err)
	}

	stored, err := storage.Get(ctx, "AAPL", "2026-08-28")
	if err != nil {
		t.Fatal(err)
	}
	if stored == nil {
		t.Fatal("Aggregate not found")
	}
	if stored.Attention != 7 || stored.BullishCount != 4 {
		t.Errorf("Aggregate not overwritten: %+v", stored)
	}

	records, err := storage.Query(ctx, interfaces.QueryOptions{Ticker: "AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("Expected single record after overwrite, got %d", len(records))
	}

	latest, err := storage.LatestDate(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if latest != "2026-08-28" {
		t.Errorf("LatestDate = %s", latest)
	}
}

func TestJobRunRecentOrdering(t *testing.T) {
	db := newTestDB(t)
	storage := NewJobRunStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	names := []string{"stock_prices", "news", "stock_prices"}
	for i, name := range names {
		run := models.NewJobRun(name)
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		run.Finish()
		if err := storage.Save(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := storage.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(recent))
	}
	if recent[0].JobName != "stock_prices" || !recent[0].StartedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("Runs not newest-first: first is %s at %v", recent[0].JobName, recent[0].StartedAt)
	}

	priceRuns, err := storage.RecentByJob(ctx, "stock_prices", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(priceRuns) != 2 {
		t.Errorf("Expected 2 stock_prices runs, got %d", len(priceRuns))
	}
}
