package httpclient

import (
	"fmt"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Desktop browser user agents rotated across scrape requests. Finviz and
// Yahoo both serve reduced or blocked pages to obvious bot agents.
var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// browserTransport decorates every outgoing request with realistic browser
// headers before delegating to the underlying round tripper.
type browserTransport struct {
	base   http.RoundTripper
	rotate bool
}

func (t *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	ua := userAgents[0]
	if t.rotate {
		ua = userAgents[rand.Intn(len(userAgents))]
	}
	clone.Header.Set("User-Agent", ua)
	clone.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8")
	clone.Header.Set("Accept-Language", "en-US,en;q=0.9")
	clone.Header.Set("Cache-Control", "no-cache")
	clone.Header.Set("Pragma", "no-cache")
	clone.Header.Set("Upgrade-Insecure-Requests", "1")
	clone.Header.Set("Sec-Fetch-Dest", "document")
	clone.Header.Set("Sec-Fetch-Mode", "navigate")
	clone.Header.Set("Sec-Fetch-Site", "same-origin")
	clone.Header.Set("Sec-Fetch-User", "?1")

	return t.base.RoundTrip(clone)
}

// NewBrowserClient creates an HTTP client with a cookie jar and browser-like
// request headers, suitable for scraping public finance pages. When rotate is
// true the user agent varies per request.
func NewBrowserClient(timeout time.Duration, rotate bool) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &http.Client{
		Jar:     jar,
		Timeout: timeout,
		Transport: &browserTransport{
			base:   http.DefaultTransport,
			rotate: rotate,
		},
	}, nil
}
