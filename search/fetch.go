package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// DefaultSnippetLimit caps the text a Fetcher returns, in runes.
const DefaultSnippetLimit = 500

// Fetcher retrieves a result page and extracts its readable text. The
// research stage uses it to enrich findings whose snippets are too thin
// to synthesize from.
type Fetcher struct {
	httpClient *http.Client
	policy     *bluemonday.Policy
	limit      int
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetcherHTTPClient sets the HTTP client.
func WithFetcherHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.httpClient = client
	}
}

// WithFetcherLimit sets the maximum extracted text length in runes.
func WithFetcherLimit(limit int) FetcherOption {
	return func(f *Fetcher) {
		if limit > 0 {
			f.limit = limit
		}
	}
}

// NewFetcher creates a Fetcher with a strict sanitization policy.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: http.DefaultClient,
		policy:     bluemonday.StrictPolicy(),
		limit:      DefaultSnippetLimit,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns up to the configured limit of readable text from the
// page. Scripts, styles, and markup are stripped.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch returned status code %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	})
	// Pages without paragraph markup fall back to the whole body text.
	if sb.Len() == 0 {
		sb.WriteString(doc.Find("body").Text())
	}

	text := f.policy.Sanitize(sb.String())
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", fmt.Errorf("no text content found at %s", pageURL)
	}

	if runes := []rune(text); len(runes) > f.limit {
		text = string(runes[:f.limit])
	}
	return text, nil
}
