package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// TavilySearch queries the Tavily search API.
type TavilySearch struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxResults int
	depth      string
}

var _ Client = (*TavilySearch)(nil)

// TavilyOption configures a TavilySearch.
type TavilyOption func(*TavilySearch)

// WithTavilyAPIKey sets the API key.
func WithTavilyAPIKey(apiKey string) TavilyOption {
	return func(t *TavilySearch) {
		t.apiKey = apiKey
	}
}

// WithTavilyBaseURL sets the endpoint URL.
func WithTavilyBaseURL(baseURL string) TavilyOption {
	return func(t *TavilySearch) {
		t.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithTavilyHTTPClient sets the HTTP client.
func WithTavilyHTTPClient(client *http.Client) TavilyOption {
	return func(t *TavilySearch) {
		t.httpClient = client
	}
}

// WithTavilyMaxResults sets the number of results per query.
func WithTavilyMaxResults(n int) TavilyOption {
	return func(t *TavilySearch) {
		if n > 0 {
			t.maxResults = n
		}
	}
}

// WithTavilyDepth sets the search depth, "basic" or "advanced".
func WithTavilyDepth(depth string) TavilyOption {
	return func(t *TavilySearch) {
		t.depth = depth
	}
}

// NewTavilySearch creates a Tavily client. Without WithTavilyAPIKey the
// key is read from TAVILY_API_KEY.
func NewTavilySearch(opts ...TavilyOption) (*TavilySearch, error) {
	t := &TavilySearch{
		baseURL:    "https://api.tavily.com/search",
		httpClient: http.DefaultClient,
		maxResults: 5,
		depth:      "advanced",
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.apiKey == "" {
		t.apiKey = os.Getenv("TAVILY_API_KEY")
	}
	if t.apiKey == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY not set")
	}
	return t, nil
}

// Name returns the provider name.
func (t *TavilySearch) Name() string {
	return "tavily"
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search executes one query.
func (t *TavilySearch) Search(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:      t.apiKey,
		Query:       query,
		SearchDepth: t.depth,
		MaxResults:  t.maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily api returned status: %d", resp.StatusCode)
	}

	var payload tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([]Result, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Score:   r.Score,
		})
	}
	return results, nil
}
