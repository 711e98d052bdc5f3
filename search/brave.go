package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// BraveSearch queries the Brave Search API.
type BraveSearch struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	count      int
	country    string
	lang       string
}

var _ Client = (*BraveSearch)(nil)

// BraveOption configures a BraveSearch.
type BraveOption func(*BraveSearch)

// WithBraveAPIKey sets the subscription token.
func WithBraveAPIKey(apiKey string) BraveOption {
	return func(b *BraveSearch) {
		b.apiKey = apiKey
	}
}

// WithBraveBaseURL sets the endpoint URL.
func WithBraveBaseURL(baseURL string) BraveOption {
	return func(b *BraveSearch) {
		b.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithBraveHTTPClient sets the HTTP client.
func WithBraveHTTPClient(client *http.Client) BraveOption {
	return func(b *BraveSearch) {
		b.httpClient = client
	}
}

// WithBraveCount sets the number of results to return (1-20).
func WithBraveCount(count int) BraveOption {
	return func(b *BraveSearch) {
		if count < 1 {
			count = 1
		}
		if count > 20 {
			count = 20
		}
		b.count = count
	}
}

// WithBraveCountry sets the country code for search results (e.g., "US", "DE").
func WithBraveCountry(country string) BraveOption {
	return func(b *BraveSearch) {
		b.country = country
	}
}

// WithBraveLang sets the language code for search results (e.g., "en", "de").
func WithBraveLang(lang string) BraveOption {
	return func(b *BraveSearch) {
		b.lang = lang
	}
}

// NewBraveSearch creates a Brave Search client. Without WithBraveAPIKey
// the key is read from BRAVE_API_KEY.
func NewBraveSearch(opts ...BraveOption) (*BraveSearch, error) {
	b := &BraveSearch{
		baseURL:    "https://api.search.brave.com/res/v1/web/search",
		httpClient: http.DefaultClient,
		count:      10,
		country:    "US",
		lang:       "en",
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.apiKey == "" {
		b.apiKey = os.Getenv("BRAVE_API_KEY")
	}
	if b.apiKey == "" {
		return nil, fmt.Errorf("BRAVE_API_KEY not set")
	}
	return b, nil
}

// Name returns the provider name.
func (b *BraveSearch) Name() string {
	return "brave"
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search executes one query.
func (b *BraveSearch) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(b.count))
	if b.country != "" {
		params.Set("country", b.country)
	}
	if b.lang != "" {
		params.Set("search_lang", b.lang)
	}

	reqURL := fmt.Sprintf("%s?%s", b.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave api returned status: %d", resp.StatusCode)
	}

	var payload braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]Result, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
		})
	}
	return results, nil
}
