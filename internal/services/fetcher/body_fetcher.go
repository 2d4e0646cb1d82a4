// Package fetcher retrieves full article bodies for listing stubs.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/interfaces"
	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

const (
	// minBodyLength filters out paywall shells and cookie-consent pages that
	// render as a few words of text.
	minBodyLength = 200

	// maxBodyLength caps stored bodies; sentiment and embedding models only
	// consume the head of the text anyway.
	maxBodyLength = 20000
)

// Config holds body fetcher configuration.
type Config struct {
	// Concurrency bounds simultaneous article downloads.
	Concurrency int

	// RequestTimeout bounds one article download end to end. A hung remote
	// must not stall the rest of the batch.
	RequestTimeout time.Duration
}

// BodyFetcher downloads article pages and extracts readable body text as
// markdown. Failures are recorded per stub, never propagated.
type BodyFetcher struct {
	config    Config
	client    *http.Client
	converter *md.Converter
	logger    arbor.ILogger
}

// New creates a body fetcher.
func New(config Config, client *http.Client, logger arbor.ILogger) interfaces.BodyFetcher {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: config.RequestTimeout}
	}
	return &BodyFetcher{
		config:    config,
		client:    client,
		converter: md.NewConverter("", true, nil),
		logger:    logger,
	}
}

// FetchBodies attempts every stub exactly once with bounded concurrency.
// Stubs are annotated in place and the same slice is returned.
func (f *BodyFetcher) FetchBodies(ctx context.Context, stubs []*models.ArticleStub) []*models.ArticleStub {
	var wg sync.WaitGroup
	sem := make(chan struct{}, f.config.Concurrency)

	for _, stub := range stubs {
		wg.Add(1)
		go func(stub *models.ArticleStub) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			f.fetchOne(ctx, stub)
		}(stub)
	}

	wg.Wait()
	return stubs
}

func (f *BodyFetcher) fetchOne(ctx context.Context, stub *models.ArticleStub) {
	if stub.URL == "" {
		stub.FetchError = "no article URL"
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.config.RequestTimeout)
	defer cancel()

	body, err := f.download(reqCtx, stub.URL)
	if err != nil {
		stub.FetchError = err.Error()
		f.logger.Debug().
			Str("ticker", stub.Ticker).
			Str("url", stub.URL).
			Err(err).
			Msg("Article body fetch failed")
		return
	}

	stub.Body = body
	stub.BodyFetched = true
}

func (f *BodyFetcher) download(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("article returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") {
		return "", fmt.Errorf("unsupported content type %s", contentType)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse article: %w", err)
	}

	return f.extractBody(doc)
}

// extractBody pulls the main article content out of the page and converts it
// to markdown. Falls back from semantic containers to the whole body.
func (f *BodyFetcher) extractBody(doc *goquery.Document) (string, error) {
	doc.Find("script, style, nav, header, footer, aside, iframe, form, noscript").Remove()

	var content *goquery.Selection
	for _, selector := range []string{"article", "main", "div[class*='article-body']", "div[class*='caas-body']", "body"} {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			content = sel
			break
		}
	}
	if content == nil {
		return "", fmt.Errorf("no content container found")
	}

	html, err := content.Html()
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}

	markdown, err := f.converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}

	markdown = strings.TrimSpace(markdown)
	if len(markdown) < minBodyLength {
		return "", fmt.Errorf("extracted body too short (%d chars)", len(markdown))
	}
	if len(markdown) > maxBodyLength {
		markdown = markdown[:maxBodyLength]
	}

	return markdown, nil
}
