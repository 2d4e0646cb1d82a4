package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
)

// PricesHandler serves stored OHLCV bars.
type PricesHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewPricesHandler(storage interfaces.StorageManager, logger arbor.ILogger) *PricesHandler {
	return &PricesHandler{storage: storage, logger: logger}
}

// ListHandler returns bars for one ticker, newest first.
// GET /api/prices?ticker=AAPL&from=2026-08-01&to=2026-08-29&limit=100
func (h *PricesHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
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

	points, err := h.storage.PriceStorage().Query(r.Context(), opts)
	if err != nil {
		h.logger.Error().Str("ticker", opts.Ticker).Err(err).Msg("Price query failed")
		WriteError(w, http.StatusInternalServerError, "failed to query prices")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ticker": opts.Ticker,
		"count":  len(points),
		"prices": points,
	})
}
