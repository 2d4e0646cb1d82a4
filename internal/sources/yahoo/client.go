// Package yahoo provides the Yahoo Finance price and news listing sources.
// Prices come from the public chart API; news listings are scraped from the
// ticker news page.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

const (
	// DefaultChartBaseURL is the base URL for the Yahoo Finance chart API.
	DefaultChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2

	// DefaultInterval is the bar interval requested from the chart API.
	DefaultInterval = "15m"

	// DefaultLookback bounds the fetch window when no watermark exists yet.
	DefaultLookback = 30 * 24 * time.Hour
)

// APIError represents an error response from the Yahoo chart API.
type APIError struct {
	StatusCode int
	Message    string
	Symbol     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo chart API error: %s (status: %d, symbol: %s)", e.Message, e.StatusCode, e.Symbol)
}

// RateLimitError represents a rate limit error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("yahoo rate limit exceeded, retry after %v", e.RetryAfter)
}

// PriceClient fetches intraday OHLCV bars from the Yahoo chart API.
type PriceClient struct {
	baseURL    string
	interval   string
	lookback   time.Duration
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// PriceClientOption configures the PriceClient.
type PriceClientOption func(*PriceClient)

// WithBaseURL sets a custom chart API base URL.
func WithBaseURL(baseURL string) PriceClientOption {
	return func(c *PriceClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) PriceClientOption {
	return func(c *PriceClient) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) PriceClientOption {
	return func(c *PriceClient) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) PriceClientOption {
	return func(c *PriceClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithInterval sets the bar interval (1m, 5m, 15m, 1h, 1d).
func WithInterval(interval string) PriceClientOption {
	return func(c *PriceClient) {
		c.interval = interval
	}
}

// WithLookback sets the fetch window used when no watermark exists.
func WithLookback(d time.Duration) PriceClientOption {
	return func(c *PriceClient) {
		c.lookback = d
	}
}

// NewPriceClient creates a new Yahoo chart API client.
func NewPriceClient(opts ...PriceClientOption) interfaces.PriceSource {
	c := &PriceClient{
		baseURL:  DefaultChartBaseURL,
		interval: DefaultInterval,
		lookback: DefaultLookback,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *PriceClient) Name() string {
	return "yahoo_chart"
}

// chartResponse mirrors the subset of the chart API payload we consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchBars retrieves bars with timestamps strictly after since. A zero since
// falls back to the configured lookback window.
func (c *PriceClient) FetchBars(ctx context.Context, ticker string, since time.Time) ([]*models.PricePoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{RetryAfter: time.Second}
	}

	symbol := models.NormalizeSymbol(ticker)
	now := time.Now().UTC()
	from := since
	if from.IsZero() {
		from = now.Add(-c.lookback)
	}

	params := url.Values{}
	params.Set("interval", c.interval)
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", now.Unix()))
	params.Set("includePrePost", "false")

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("symbol", symbol).
			Str("interval", c.interval).
			Msg("Yahoo chart API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{RetryAfter: 30 * time.Second}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Symbol:     symbol,
		}
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    result.Chart.Error.Description,
			Symbol:     symbol,
		}
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	series := result.Chart.Result[0]
	quote := series.Indicators.Quote[0]

	bars := make([]*models.PricePoint, 0, len(series.Timestamp))
	for i, unix := range series.Timestamp {
		// The API pads incomplete intervals with nulls, and occasionally
		// returns ragged arrays shorter than the timestamp list; skip both.
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}
		if quote.Close[i] == nil || quote.Open[i] == nil ||
			quote.High[i] == nil || quote.Low[i] == nil {
			continue
		}

		ts := time.Unix(unix, 0).UTC()
		if !since.IsZero() && !ts.After(since) {
			continue
		}

		var volume int64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}

		bars = append(bars, &models.PricePoint{
			ID:        models.PriceKey(symbol, ts),
			Ticker:    symbol,
			Timestamp: ts,
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Volume:    volume,
		})
	}

	return bars, nil
}
