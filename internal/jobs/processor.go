package jobs

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

// Processor turns fetched article stubs into stored documents and annotates
// them with sentiment and embeddings. Enrichment failures are soft: the
// article stays stored unenriched and a later sweep picks it up.
type Processor struct {
	storage  interfaces.StorageManager
	scorer   interfaces.SentimentScorer
	embedder interfaces.Embedder
	logger   arbor.ILogger
}

// NewProcessor creates an article processor. Scorer and embedder may be nil
// when the corresponding API is not configured; articles are then stored
// without annotations.
func NewProcessor(storage interfaces.StorageManager, scorer interfaces.SentimentScorer, embedder interfaces.Embedder, logger arbor.ILogger) *Processor {
	return &Processor{
		storage:  storage,
		scorer:   scorer,
		embedder: embedder,
		logger:   logger,
	}
}

// ProcessStubs stores every stub as a merged article and enriches the ones
// with bodies. Returns how many articles were stored and the newest date
// among them.
func (p *Processor) ProcessStubs(ctx context.Context, stubs []*models.ArticleStub) (stored int, latestDate string, err error) {
	for _, stub := range stubs {
		article := p.stubToArticle(stub)

		merged, err := p.storage.NewsStorage().UpsertMerge(ctx, article)
		if err != nil {
			return stored, latestDate, err
		}
		stored++
		if merged.Date > latestDate {
			latestDate = merged.Date
		}

		if merged.NeedsEnrichment() {
			p.enrich(ctx, merged)
		}
	}
	return stored, latestDate, nil
}

func (p *Processor) stubToArticle(stub *models.ArticleStub) *models.NewsArticle {
	article := &models.NewsArticle{
		ID:          models.ArticleKey(stub.Ticker, stub.Source, stub.Date, stub.Title),
		Ticker:      models.NormalizeSymbol(stub.Ticker),
		Source:      stub.Source,
		Title:       stub.Title,
		URL:         stub.URL,
		Date:        stub.Date,
		BodyFetched: stub.BodyFetched,
		IngestedAt:  time.Now().UTC(),
	}
	if stub.BodyFetched && stub.Body != "" {
		body := stub.Body
		article.Body = &body
	}
	return article
}

// enrich annotates one article in place and persists the annotations.
// Partial results are kept: a sentiment score without an embedding still
// gets stored.
func (p *Processor) enrich(ctx context.Context, article *models.NewsArticle) {
	if article.Body == nil || *article.Body == "" {
		return
	}

	update := &models.NewsArticle{
		ID:     article.ID,
		Ticker: article.Ticker,
		Source: article.Source,
		Title:  article.Title,
		Date:   article.Date,
	}
	changed := false

	if article.Sentiment == nil && p.scorer != nil {
		sentiment, err := p.scorer.Score(ctx, *article.Body)
		if err != nil {
			p.logger.Warn().
				Str("article_id", article.ID).
				Err(err).
				Msg("Sentiment scoring failed")
		} else {
			update.Sentiment = sentiment
			changed = true
		}
	}

	if len(article.Embedding) == 0 && p.embedder != nil {
		embedding, err := p.embedder.Embed(ctx, *article.Body)
		if err != nil {
			p.logger.Warn().
				Str("article_id", article.ID).
				Err(err).
				Msg("Embedding generation failed")
		} else {
			update.Embedding = embedding
			update.EmbeddingModel = p.embedder.ModelName()
			changed = true
		}
	}

	if !changed {
		return
	}

	if _, err := p.storage.NewsStorage().UpsertMerge(ctx, update); err != nil {
		p.logger.Error().
			Str("article_id", article.ID).
			Err(err).
			Msg("Failed to persist enrichment")
	}
}

// EnrichPending enriches up to limit stored articles that have bodies but
// lack annotations. Returns how many articles were attempted.
func (p *Processor) EnrichPending(ctx context.Context, limit int) (int, error) {
	pending, err := p.storage.NewsStorage().NeedingEnrichment(ctx, limit)
	if err != nil {
		return 0, err
	}

	for _, article := range pending {
		select {
		case <-ctx.Done():
			return len(pending), ctx.Err()
		default:
		}
		p.enrich(ctx, article)
	}

	return len(pending), nil
}
