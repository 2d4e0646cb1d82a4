package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartFixture = `{
  "chart": {
    "result": [
      {
        "meta": {"symbol": "AAPL"},
        "timestamp": [1756391400, 1756392300, 1756393200, 1756394100],
        "indicators": {
          "quote": [
            {
              "open":   [230.10, 230.55, null, 231.20],
              "high":   [230.80, 231.10, null, 231.90],
              "low":    [229.90, 230.30, null, 231.00],
              "close":  [230.55, 230.95, null, 231.75],
              "volume": [1200000, 980000, null, 1430000]
            }
          ]
        }
      }
    ],
    "error": null
  }
}`

func TestFetchBarsParsesChartResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/AAPL")
		assert.Equal(t, "15m", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, chartFixture)
	}))
	defer server.Close()

	client := NewPriceClient(
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)

	bars, err := client.FetchBars(context.Background(), "aapl", time.Time{})
	require.NoError(t, err)

	// The null-padded third interval is dropped.
	require.Len(t, bars, 3)

	first := bars[0]
	assert.Equal(t, "AAPL", first.Ticker)
	assert.Equal(t, time.Unix(1756391400, 0).UTC(), first.Timestamp)
	assert.Equal(t, 230.10, first.Open)
	assert.Equal(t, 230.55, first.Close)
	assert.Equal(t, int64(1200000), first.Volume)
	assert.NotEmpty(t, first.ID)
}

func TestFetchBarsRaggedQuoteArrays(t *testing.T) {
	// Arrays shorter than the timestamp list must drop the trailing bars,
	// not index past the end.
	fixture := `{
	  "chart": {
	    "result": [
	      {
	        "meta": {"symbol": "AAPL"},
	        "timestamp": [1756391400, 1756392300, 1756393200],
	        "indicators": {
	          "quote": [
	            {
	              "open":   [230.10],
	              "high":   [230.80, 231.10],
	              "low":    [229.90, 230.30],
	              "close":  [230.55, 230.95],
	              "volume": [1200000, 980000]
	            }
	          ]
	        }
	      }
	    ],
	    "error": null
	  }
	}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fixture)
	}))
	defer server.Close()

	client := NewPriceClient(
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)

	bars, err := client.FetchBars(context.Background(), "AAPL", time.Time{})
	require.NoError(t, err)

	// Only the first interval is covered by every array.
	require.Len(t, bars, 1)
	assert.Equal(t, 230.10, bars[0].Open)
}

func TestFetchBarsHonorsSince(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartFixture)
	}))
	defer server.Close()

	client := NewPriceClient(
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)

	// Since equals the second bar's timestamp: only strictly newer bars return.
	since := time.Unix(1756392300, 0).UTC()
	bars, err := client.FetchBars(context.Background(), "AAPL", since)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.True(t, bars[0].Timestamp.After(since))
}

func TestFetchBarsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
	}))
	defer server.Close()

	client := NewPriceClient(
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)

	_, err := client.FetchBars(context.Background(), "BOGUS", time.Time{})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, "BOGUS", apiErr.Symbol)
	assert.Contains(t, apiErr.Message, "delisted")
}

func TestFetchBarsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewPriceClient(
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
	)

	_, err := client.FetchBars(context.Background(), "AAPL", time.Time{})
	require.Error(t, err)

	_, ok := err.(*RateLimitError)
	assert.True(t, ok, "expected *RateLimitError, got %T", err)
}
