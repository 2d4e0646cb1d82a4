package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// NewsSource identifies where an article listing was scraped from.
type NewsSource string

const (
	SourceYahoo  NewsSource = "yahoo_finance"
	SourceFinviz NewsSource = "finviz"
)

// Sentiment is the model-assigned sentiment annotation for an article.
// Score is positive minus negative, in [-1, 1].
type Sentiment struct {
	Score    float64 `json:"score"`
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// ArticleStub is the intermediate form produced by a listing scrape, before
// body fetching and enrichment. It never touches storage.
type ArticleStub struct {
	Ticker      string
	Source      NewsSource
	Title       string
	URL         string
	Date        string // YYYY-MM-DD
	Body        string
	BodyFetched bool
	FetchError  string
}

// NewsArticle is the stored article document. Enrichment fields (Body,
// Sentiment, Embedding) start empty and are filled in by later passes;
// MergeArticle guarantees they never regress to empty once populated.
type NewsArticle struct {
	ID     string     `json:"id" badgerhold:"key"`
	Ticker string     `json:"ticker" badgerhold:"index"`
	Source NewsSource `json:"source"`
	Title  string     `json:"title"`
	URL    string     `json:"url"`
	Date   string     `json:"date" badgerhold:"index"` // YYYY-MM-DD

	Body        *string `json:"body,omitempty"`
	BodyFetched bool    `json:"body_fetched"`

	Sentiment      *Sentiment `json:"sentiment,omitempty"`
	Embedding      []float32  `json:"embedding,omitempty"`
	EmbeddingModel string     `json:"embedding_model,omitempty"`

	IngestedAt time.Time `json:"ingested_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NeedsEnrichment reports whether the article still lacks a sentiment score
// or an embedding. Articles without a fetched body are not enrichable yet.
func (a *NewsArticle) NeedsEnrichment() bool {
	if !a.BodyFetched {
		return false
	}
	return a.Sentiment == nil || len(a.Embedding) == 0
}

// NormalizeTitle lowercases a title and collapses every run of
// non-alphanumeric characters to a single space, so trivially reformatted
// headlines hash to the same dedupe key.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// ArticleKey builds the deterministic dedupe key for an article. Articles
// from the same source on the same day whose normalized titles match are
// treated as the same article.
func ArticleKey(ticker string, source NewsSource, date, title string) string {
	sum := sha256.Sum256([]byte(NormalizeTitle(title)))
	return fmt.Sprintf("%s_%s_%s_%s", NormalizeSymbol(ticker), source, date, hex.EncodeToString(sum[:])[:12])
}

// MergeArticle merges an incoming article into an existing stored one.
// Field-level last-merge-wins, except that a populated field is never
// overwritten by an empty one. Returns the merged document.
func MergeArticle(existing, incoming *NewsArticle) *NewsArticle {
	if existing == nil {
		return incoming
	}

	merged := *existing

	if incoming.Title != "" {
		merged.Title = incoming.Title
	}
	if incoming.URL != "" {
		merged.URL = incoming.URL
	}
	if incoming.Date != "" {
		merged.Date = incoming.Date
	}
	if incoming.Source != "" {
		merged.Source = incoming.Source
	}
	if incoming.Body != nil && *incoming.Body != "" {
		merged.Body = incoming.Body
	}
	if incoming.BodyFetched {
		merged.BodyFetched = true
	}
	if incoming.Sentiment != nil {
		merged.Sentiment = incoming.Sentiment
	}
	if len(incoming.Embedding) > 0 {
		merged.Embedding = incoming.Embedding
		merged.EmbeddingModel = incoming.EmbeddingModel
	}
	if !incoming.IngestedAt.IsZero() && (merged.IngestedAt.IsZero() || incoming.IngestedAt.Before(merged.IngestedAt)) {
		merged.IngestedAt = incoming.IngestedAt
	}

	return &merged
}
