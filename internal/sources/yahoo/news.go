package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

const (
	// DefaultNewsBaseURL is the ticker news page. The listing is rendered
	// client-side with infinite scroll; the static HTML carries the first page.
	DefaultNewsBaseURL = "https://finance.yahoo.com/quote/%s/news/"

	// DefaultMaxScrolls bounds the infinite-scroll loop when rendering.
	DefaultMaxScrolls = 10
)

var (
	daysAgoRe    = regexp.MustCompile(`(\d+)\s*d(?:ays?)?\s*ago`)
	hoursAgoRe   = regexp.MustCompile(`(\d+)\s*h(?:ou)?rs?\s*ago`)
	minutesAgoRe = regexp.MustCompile(`(\d+)\s*min(?:ute)?s?\s*ago`)
)

// NewsScraperConfig holds configuration for the Yahoo news scraper.
type NewsScraperConfig struct {
	BaseURL    string
	MaxScrolls int

	// RenderJavaScript drives the listing through a headless browser so the
	// infinite scroll loads older items. Without it only the statically
	// served first page is visible.
	RenderJavaScript bool
	RenderWaitTime   time.Duration
	UserAgent        string
}

// NewsScraper scrapes the Yahoo Finance ticker news listing.
type NewsScraper struct {
	config     NewsScraperConfig
	httpClient *http.Client
	logger     arbor.ILogger
	now        func() time.Time
}

// NewNewsScraper creates a Yahoo news listing source.
func NewNewsScraper(config NewsScraperConfig, httpClient *http.Client, logger arbor.ILogger) interfaces.NewsListingSource {
	if config.BaseURL == "" {
		config.BaseURL = DefaultNewsBaseURL
	}
	if config.MaxScrolls <= 0 {
		config.MaxScrolls = DefaultMaxScrolls
	}
	if config.RenderWaitTime <= 0 {
		config.RenderWaitTime = 2 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &NewsScraper{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *NewsScraper) Source() models.NewsSource {
	return models.SourceYahoo
}

// FetchListing returns article stubs for the ticker, no older than sinceDate.
func (s *NewsScraper) FetchListing(ctx context.Context, ticker string, sinceDate string) ([]*models.ArticleStub, error) {
	symbol := models.NormalizeSymbol(ticker)
	pageURL := fmt.Sprintf(s.config.BaseURL, symbol)

	var html string
	var err error
	if s.config.RenderJavaScript {
		html, err = s.renderListing(ctx, pageURL, sinceDate)
	} else {
		html, err = s.fetchStatic(ctx, pageURL)
	}
	if err != nil {
		return nil, err
	}

	stubs, err := s.parseListing(strings.NewReader(html), symbol)
	if err != nil {
		return nil, err
	}

	if sinceDate != "" {
		filtered := stubs[:0]
		for _, stub := range stubs {
			if stub.Date >= sinceDate {
				filtered = append(filtered, stub)
			}
		}
		stubs = filtered
	}

	s.logger.Debug().
		Str("ticker", symbol).
		Int("articles", len(stubs)).
		Bool("rendered", s.config.RenderJavaScript).
		Msg("Yahoo news listing fetched")

	return stubs, nil
}

func (s *NewsScraper) fetchStatic(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch news listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &RateLimitError{RetryAfter: 30 * time.Second}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "news listing request failed", Symbol: pageURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// renderListing drives a headless browser through the infinite scroll until
// items older than sinceDate appear or the scroll budget runs out.
func (s *NewsScraper) renderListing(ctx context.Context, pageURL, sinceDate string) (string, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	}
	if s.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.config.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var html string
	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(s.config.RenderWaitTime),
		chromedp.OuterHTML("html", &html),
	); err != nil {
		return "", fmt.Errorf("failed to render news listing: %w", err)
	}

	for i := 0; i < s.config.MaxScrolls; i++ {
		if sinceDate != "" && s.pageCoversDate(html, sinceDate) {
			break
		}
		if err := chromedp.Run(browserCtx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(s.config.RenderWaitTime),
			chromedp.OuterHTML("html", &html),
		); err != nil {
			return "", fmt.Errorf("failed to scroll news listing: %w", err)
		}
	}

	return html, nil
}

// pageCoversDate reports whether the rendered page already contains items
// older than the requested window, meaning scrolling further is pointless.
func (s *NewsScraper) pageCoversDate(html, sinceDate string) bool {
	since, err := time.Parse("2006-01-02", sinceDate)
	if err != nil {
		return true
	}
	targetDays := int(s.now().Sub(since).Hours()/24) + 1

	for _, m := range daysAgoRe.FindAllStringSubmatch(strings.ToLower(html), -1) {
		if d, err := strconv.Atoi(m[1]); err == nil && d >= targetDays {
			return true
		}
	}
	return false
}

// parseListing extracts article stubs from the news page HTML.
func (s *NewsScraper) parseListing(r io.Reader, symbol string) ([]*models.ArticleStub, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse news listing: %w", err)
	}

	var stubs []*models.ArticleStub
	seen := make(map[string]bool)

	doc.Find("ul.stream-items li, div[data-testid='news-stream'] li").Each(func(i int, item *goquery.Selection) {
		class, _ := item.Attr("class")
		if strings.Contains(class, "ad-item") || strings.Contains(class, "native-ad") {
			return
		}

		headline := item.Find("h3").First()
		title := strings.TrimSpace(headline.Text())
		if title == "" {
			return
		}

		href, _ := item.Find("a[href]").First().Attr("href")
		if href != "" && !strings.HasPrefix(href, "http") {
			href = "https://finance.yahoo.com" + href
		}

		// The publishing line reads "Reuters • 2 hours ago".
		timeText := strings.TrimSpace(item.Find("div[class*='publishing']").First().Text())
		if idx := strings.LastIndex(timeText, "•"); idx >= 0 {
			timeText = strings.TrimSpace(timeText[idx+len("•"):])
		}
		date := s.parseRelativeTime(timeText)

		stub := &models.ArticleStub{
			Ticker: symbol,
			Source: models.SourceYahoo,
			Title:  title,
			URL:    href,
			Date:   date,
		}

		key := models.ArticleKey(stub.Ticker, stub.Source, stub.Date, stub.Title)
		if seen[key] {
			return
		}
		seen[key] = true
		stubs = append(stubs, stub)
	})

	return stubs, nil
}

// parseRelativeTime converts "2 hours ago" style text to a YYYY-MM-DD date.
// Unparseable text falls back to today.
func (s *NewsScraper) parseRelativeTime(text string) string {
	now := s.now()
	text = strings.ToLower(strings.TrimSpace(text))

	if m := daysAgoRe.FindStringSubmatch(text); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			return now.AddDate(0, 0, -days).Format("2006-01-02")
		}
	}
	if m := hoursAgoRe.FindStringSubmatch(text); m != nil {
		if hours, err := strconv.Atoi(m[1]); err == nil {
			return now.Add(-time.Duration(hours) * time.Hour).Format("2006-01-02")
		}
	}
	if m := minutesAgoRe.FindStringSubmatch(text); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil {
			return now.Add(-time.Duration(minutes) * time.Minute).Format("2006-01-02")
		}
	}
	if text == "yesterday" {
		return now.AddDate(0, 0, -1).Format("2006-01-02")
	}

	return now.Format("2006-01-02")
}
