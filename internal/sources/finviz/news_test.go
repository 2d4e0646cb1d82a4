package finviz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ZeyuShao-uOttawa/SentimentDelta/internal/models"
)

const newsTableFixture = `
<html><body>
<table id="news-table" class="fullview-news-outer news-table">
  <tr>
    <td width="130" align="right">Today 04:24PM</td>
    <td align="left">
      <div class="news-link-container">
        <div class="news-link-left">
          <a class="tab-link-news" href="https://www.reuters.com/apple-earnings">Apple posts record quarterly revenue</a>
        </div>
      </div>
    </td>
  </tr>
  <tr>
    <td width="130" align="right">09:15AM</td>
    <td align="left">
      <div class="news-link-container">
        <div class="news-link-left">
          <a class="tab-link-news" href="/news/relative-path-article.html">Analysts raise Apple price targets ahead of launch</a>
        </div>
      </div>
    </td>
  </tr>
  <tr>
    <td width="130" align="right">Aug-26-26 11:02AM</td>
    <td align="left">
      <div class="news-link-container">
        <div class="news-link-left">
          <a class="tab-link-news" href="https://www.bloomberg.com/supply-chain">iPhone supply chain shows signs of strain</a>
        </div>
      </div>
    </td>
  </tr>
  <tr>
    <td width="130" align="right">08:30AM</td>
    <td align="left">
      <div class="news-link-container">
        <div class="news-link-left">
          <a class="tab-link-news" href="https://example.com/short">Too short</a>
        </div>
      </div>
    </td>
  </tr>
</table>
</body></html>`

func fixedScraper(now time.Time) *Scraper {
	return &Scraper{
		config: ScraperConfig{BaseURL: DefaultBaseURL},
		logger: arbor.NewLogger(),
		now:    func() time.Time { return now },
	}
}

func TestParseNewsTable(t *testing.T) {
	now := time.Date(2026, 8, 28, 17, 0, 0, 0, time.UTC)
	scraper := fixedScraper(now)

	stubs, err := scraper.parseNewsTable(strings.NewReader(newsTableFixture), "AAPL")
	require.NoError(t, err)

	// The too-short headline is dropped.
	require.Len(t, stubs, 3)

	assert.Equal(t, "Apple posts record quarterly revenue", stubs[0].Title)
	assert.Equal(t, models.SourceFinviz, stubs[0].Source)
	assert.Equal(t, "2026-08-28", stubs[0].Date, "Today rows use the current date")
	assert.Equal(t, "https://www.reuters.com/apple-earnings", stubs[0].URL)

	// Time-only row inherits the date from the row above.
	assert.Equal(t, "2026-08-28", stubs[1].Date)
	assert.Equal(t, "https://finviz.com/news/relative-path-article.html", stubs[1].URL, "relative URLs are absolutized")

	// Full-date row resets the carried date.
	assert.Equal(t, "2026-08-26", stubs[2].Date)
}

func TestParseNewsTableMissing(t *testing.T) {
	scraper := fixedScraper(time.Now())
	_, err := scraper.parseNewsTable(strings.NewReader("<html><body></body></html>"), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no news table")
}

func TestFetchListingFiltersBySinceDate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL", r.URL.Query().Get("t"))
		fmt.Fprint(w, newsTableFixture)
	}))
	defer server.Close()

	scraper := &Scraper{
		config:     ScraperConfig{BaseURL: server.URL},
		httpClient: server.Client(),
		logger:     arbor.NewLogger(),
		now:        func() time.Time { return time.Date(2026, 8, 28, 17, 0, 0, 0, time.UTC) },
	}

	stubs, err := scraper.FetchListing(context.Background(), "aapl", "2026-08-28")
	require.NoError(t, err)
	require.Len(t, stubs, 2, "the Aug-26 article falls outside the window")
	for _, stub := range stubs {
		assert.Equal(t, "2026-08-28", stub.Date)
	}
}
