package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
)

// NewsHandler serves stored news articles.
type NewsHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewNewsHandler(storage interfaces.StorageManager, logger arbor.ILogger) *NewsHandler {
	return &NewsHandler{storage: storage, logger: logger}
}

// articleView trims the stored document for list responses; bodies and
// embeddings are only returned from the single-article endpoint.
type articleView struct {
	ID        string      `json:"id"`
	Ticker    string      `json:"ticker"`
	Source    string      `json:"source"`
	Title     string      `json:"title"`
	URL       string      `json:"url,omitempty"`
	Date      string      `json:"date"`
	HasBody   bool        `json:"has_body"`
	Sentiment interface{} `json:"sentiment,omitempty"`
}

// ListHandler returns article metadata for one ticker, newest first.
// GET /api/news?ticker=AAPL&from=2026-08-01&limit=50
func (h *NewsHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	opts, err := GetQueryOptions(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.Ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker parameter is required")
		return
	}

	articles, err := h.storage.NewsStorage().Query(r.Context(), opts)
	if err != nil {
		h.logger.Error().Str("ticker", opts.Ticker).Err(err).Msg("News query failed")
		WriteError(w, http.StatusInternalServerError, "failed to query news")
		return
	}

	views := make([]articleView, 0, len(articles))
	for _, article := range articles {
		view := articleView{
			ID:      article.ID,
			Ticker:  article.Ticker,
			Source:  string(article.Source),
			Title:   article.Title,
			URL:     article.URL,
			Date:    article.Date,
			HasBody: article.BodyFetched,
		}
		if article.Sentiment != nil {
			view.Sentiment = article.Sentiment
		}
		views = append(views, view)
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":   opts.Ticker,
		"count":    len(views),
		"articles": views,
	})
}

// GetHandler returns one full article document including body and embedding.
// GET /api/news/{id}
func (h *NewsHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/news/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusBadRequest, "invalid article id")
		return
	}

	article, err := h.storage.NewsStorage().Get(r.Context(), id)
	if err != nil {
		h.logger.Error().Str("article_id", id).Err(err).Msg("Article lookup failed")
		WriteError(w, http.StatusInternalServerError, "failed to load article")
		return
	}
	if article == nil {
		WriteError(w, http.StatusNotFound, "article not found")
		return
	}

	WriteJSON(w, http.StatusOK, article)
}
