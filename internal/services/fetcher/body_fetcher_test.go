package fetcher

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

func articleHTML(paragraphs int) string {
	var b strings.Builder
	b.WriteString("<html><head><script>tracker()</script></head><body><nav>menu</nav><article><h1>Headline</h1>")
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&b, "<p>Paragraph %d with enough words to make the extracted body realistically long for a financial news article.</p>", i)
	}
	b.WriteString("</article><footer>legal</footer></body></html>")
	return b.String()
}

func TestFetchBodiesExtractsMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articleHTML(5))
	}))
	defer server.Close()

	f := New(Config{Concurrency: 2, RequestTimeout: 5 * time.Second}, server.Client(), arbor.NewLogger())

	stubs := []*models.ArticleStub{
		{Ticker: "AAPL", Source: models.SourceYahoo, Title: "Headline", URL: server.URL + "/a"},
	}
	result := f.FetchBodies(context.Background(), stubs)

	require.Len(t, result, 1)
	assert.True(t, result[0].BodyFetched)
	assert.Empty(t, result[0].FetchError)
	assert.Contains(t, result[0].Body, "Headline")
	assert.Contains(t, result[0].Body, "Paragraph 0")
	assert.NotContains(t, result[0].Body, "tracker()", "scripts are stripped")
	assert.NotContains(t, result[0].Body, "menu", "navigation is stripped")
}

func TestFetchBodiesIsolatesFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML(5))
	})
	mux.HandleFunc("/hung", func(w http.ResponseWriter, r *http.Request) {
		// Never responds within the request timeout.
		<-r.Context().Done()
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := New(Config{Concurrency: 3, RequestTimeout: 500 * time.Millisecond}, server.Client(), arbor.NewLogger())

	stubs := []*models.ArticleStub{
		{Ticker: "AAPL", Title: "good", URL: server.URL + "/good"},
		{Ticker: "AAPL", Title: "hung", URL: server.URL + "/hung"},
		{Ticker: "AAPL", Title: "missing", URL: server.URL + "/missing"},
		{Ticker: "AAPL", Title: "no url"},
	}

	start := time.Now()
	result := f.FetchBodies(context.Background(), stubs)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 5*time.Second, "hung fetch must not stall the batch past its timeout")

	require.Len(t, result, 4)
	assert.True(t, result[0].BodyFetched)
	assert.False(t, result[1].BodyFetched)
	assert.NotEmpty(t, result[1].FetchError)
	assert.False(t, result[2].BodyFetched)
	assert.Contains(t, result[2].FetchError, "404")
	assert.False(t, result[3].BodyFetched)
	assert.Equal(t, "no article URL", result[3].FetchError)
}

func TestFetchBodiesRejectsShortContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><article><p>Subscribe to read.</p></article></body></html>")
	}))
	defer server.Close()

	f := New(Config{Concurrency: 1, RequestTimeout: 5 * time.Second}, server.Client(), arbor.NewLogger())

	stubs := []*models.ArticleStub{{Ticker: "AAPL", Title: "paywalled", URL: server.URL}}
	result := f.FetchBodies(context.Background(), stubs)

	assert.False(t, result[0].BodyFetched)
	assert.Contains(t, result[0].FetchError, "too short")
}
