// Package finviz scrapes the Finviz quote page news table. The table is
// plain server-rendered HTML, so a browser-headed HTTP client is enough.
package finviz

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

const (
	// DefaultBaseURL is the Finviz quote page.
	DefaultBaseURL = "https://finviz.com"

	minTitleLength = 10
)

var (
	timeOnlyRe = regexp.MustCompile(`^\d{2}:\d{2}[AP]M$`)
	fullDateRe = regexp.MustCompile(`^[A-Z][a-z]{2}-\d{2}-\d{2}`)
)

// ScraperConfig holds configuration for the Finviz scraper.
type ScraperConfig struct {
	BaseURL string
}

// Scraper scrapes ticker news from the Finviz quote page.
type Scraper struct {
	config     ScraperConfig
	httpClient *http.Client
	logger     arbor.ILogger
	now        func() time.Time
}

// NewScraper creates a Finviz news listing source.
func NewScraper(config ScraperConfig, httpClient *http.Client, logger arbor.ILogger) interfaces.NewsListingSource {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Scraper{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Scraper) Source() models.NewsSource {
	return models.SourceFinviz
}

// FetchListing returns article stubs for the ticker, no older than sinceDate.
func (s *Scraper) FetchListing(ctx context.Context, ticker string, sinceDate string) ([]*models.ArticleStub, error) {
	symbol := models.NormalizeSymbol(ticker)
	pageURL := fmt.Sprintf("%s/quote.ashx?t=%s", s.config.BaseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch finviz page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finviz returned status %d for %s", resp.StatusCode, symbol)
	}

	stubs, err := s.parseNewsTable(resp.Body, symbol)
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
		Msg("Finviz news listing fetched")

	return stubs, nil
}

// parseNewsTable extracts article stubs from the quote page's news table.
// Finviz prints the full date only on the first row of each day; subsequent
// rows carry a bare time and inherit the date above them.
func (s *Scraper) parseNewsTable(r io.Reader, symbol string) ([]*models.ArticleStub, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse finviz page: %w", err)
	}

	table := doc.Find("table#news-table")
	if table.Length() == 0 {
		return nil, fmt.Errorf("no news table found for %s", symbol)
	}

	var stubs []*models.ArticleStub
	currentDate := s.now().Format("2006-01-02")
	lastFullDate := ""

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		timeText := strings.TrimSpace(row.Find("td").First().Text())
		if timeText == "" {
			return
		}

		date := ""
		switch {
		case strings.HasPrefix(timeText, "Today"):
			date = currentDate
			lastFullDate = currentDate
		case timeOnlyRe.MatchString(timeText):
			date = lastFullDate
			if date == "" {
				date = currentDate
			}
		case fullDateRe.MatchString(timeText):
			datePart := strings.SplitN(timeText, " ", 2)[0]
			if t, err := time.Parse("Jan-02-06", datePart); err == nil {
				date = t.Format("2006-01-02")
				lastFullDate = date
			}
		}
		if date == "" {
			return
		}

		link := row.Find("a.tab-link-news").First()
		title := strings.TrimSpace(link.Text())
		if len(title) < minTitleLength {
			return
		}

		href, _ := link.Attr("href")
		if href != "" && !strings.HasPrefix(href, "http") {
			href = s.config.BaseURL + href
		}

		stubs = append(stubs, &models.ArticleStub{
			Ticker: symbol,
			Source: models.SourceFinviz,
			Title:  title,
			URL:    href,
			Date:   date,
		})
	})

	return stubs, nil
}
