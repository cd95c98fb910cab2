package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	apperrors "github.com/cardledger/soldscraper/pkg/errors"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}
)

// RandomUserAgent returns one of the desktop browser user agents
func RandomUserAgent() string {
	return userAgents[mathrand.Intn(len(userAgents))]
}

// NewClient creates a resty client for page fetches. proxyURL may be empty.
func NewClient(proxyURL string) *resty.Client {
	client := resty.New().
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return client
}

// FetchWithRandomHeaders sends a GET request with randomized browser headers,
// converts the response body to UTF-8 (if needed), and returns it as an io.Reader.
// A 429/430 answer yields an error wrapping errors.ErrRateLimited.
func FetchWithRandomHeaders(ctx context.Context, client *resty.Client, url string) (io.Reader, error) {
	resp, err := client.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"User-Agent":                RandomUserAgent(),
			"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"Accept-Language":           "en-US,en;q=0.9",
			"Cache-Control":             "no-cache",
			"Pragma":                    "no-cache",
			"Referer":                   referers[mathrand.Intn(len(referers))],
			"Upgrade-Insecure-Requests": "1",
			"Sec-Fetch-Mode":            "navigate",
			"Sec-Fetch-Site":            "cross-site",
			"Sec-Fetch-User":            "?1",
		}).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	// Check for rate limiting
	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode()) {
		retryAfter := resp.Header().Get("Retry-After")
		return nil, fmt.Errorf("%w; retry after %s", apperrors.ErrRateLimited, retryAfter)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch %s unexpected status code: %d", url, resp.StatusCode())
	}

	return ToUTF8(resp.Body(), resp.Header().Get("Content-Type"))
}

// ToUTF8 decodes body using the charset from contentType or the document itself
func ToUTF8(body []byte, contentType string) (io.Reader, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)

	// If already UTF-8, return as is
	if strings.EqualFold(name, "utf-8") {
		return bytes.NewReader(body), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}

	return &buf, nil
}

// WithTimeout is context.WithTimeout that leaves ctx untouched for d <= 0
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
