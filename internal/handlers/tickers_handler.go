package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
)

// TickersHandler serves the tracked ticker set and its watermarks.
type TickersHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

func NewTickersHandler(storage interfaces.StorageManager, logger arbor.ILogger) *TickersHandler {
	return &TickersHandler{storage: storage, logger: logger}
}

// ListHandler returns every tracked ticker.
// GET /api/tickers
func (h *TickersHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	tickers, err := h.storage.TickerStorage().List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Ticker list failed")
		WriteError(w, http.StatusInternalServerError, "failed to list tickers")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(tickers),
		"tickers": tickers,
	})
}
