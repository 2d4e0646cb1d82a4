package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// GetQueryOptions extracts the common filter parameters shared by the read
// endpoints: ticker, from, to (YYYY-MM-DD inclusive), limit, offset.
func GetQueryOptions(r *http.Request) (interfaces.QueryOptions, error) {
	q := r.URL.Query()

	opts := interfaces.QueryOptions{
		Ticker:   models.NormalizeSymbol(q.Get("ticker")),
		FromDate: q.Get("from"),
		ToDate:   q.Get("to"),
		Limit:    defaultQueryLimit,
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return opts, errInvalidParam("limit", raw)
		}
		if limit > maxQueryLimit {
			limit = maxQueryLimit
		}
		opts.Limit = limit
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return opts, errInvalidParam("offset", raw)
		}
		opts.Offset = offset
	}

	return opts, nil
}

type paramError struct {
	name, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter: " + e.value
}

func errInvalidParam(name, value string) error {
	return &paramError{name: name, value: value}
}
