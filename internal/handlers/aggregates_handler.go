package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
)

// AggregatesHandler serves daily sentiment summaries.
type AggregatesHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewAggregatesHandler(storage interfaces.StorageManager, logger arbor.ILogger) *AggregatesHandler {
	return &AggregatesHandler{storage: storage, logger: logger}
}

// ListHandler returns ticker-day aggregates in date order.
// GET /api/aggregates?ticker=AAPL&from=2026-08-01&to=2026-08-29
func (h *AggregatesHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
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

	records, err := h.storage.AggregateStorage().Query(r.Context(), opts)
	if err != nil {
		h.logger.Error().Str("ticker", opts.Ticker).Err(err).Msg("Aggregate query failed")
		WriteError(w, http.StatusInternalServerError, "failed to query aggregates")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker":     opts.Ticker,
		"count":      len(records),
		"aggregates": records,
	})
}
