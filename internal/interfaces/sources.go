package interfaces

import (
	"context"
	"time"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// PriceSource fetches raw OHLCV bars for one ticker. Implementations own
// their retry-free HTTP mechanics; the price job layers retry/backoff on top.
type PriceSource interface {
	// FetchBars returns bars with timestamps strictly after since, in any
	// order. A zero since means the implementation's default lookback.
	FetchBars(ctx context.Context, ticker string, since time.Time) ([]*models.PricePoint, error)
	Name() string
}

// NewsListingSource fetches article listing metadata (no bodies) for one
// ticker from one provider.
type NewsListingSource interface {
	// FetchListing returns article stubs no older than sinceDate (YYYY-MM-DD,
	// empty for the provider default window).
	FetchListing(ctx context.Context, ticker string, sinceDate string) ([]*models.ArticleStub, error)
	Source() models.NewsSource
}

// BodyFetcher retrieves full article bodies for a batch of stubs with bounded
// concurrency. Every stub is attempted exactly once; a failure annotates that
// stub and never aborts its siblings.
type BodyFetcher interface {
	FetchBodies(ctx context.Context, stubs []*models.ArticleStub) []*models.ArticleStub
}

// SentimentScorer scores a text with a continuous score and a
// positive/neutral/negative breakdown.
type SentimentScorer interface {
	Score(ctx context.Context, text string) (*models.Sentiment, error)
}

// Embedder produces a vector embedding for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}
