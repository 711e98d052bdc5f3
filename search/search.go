// Package search provides the web search clients used by the research
// stage: Tavily and Brave Search behind a common Client interface, plus
// a page Fetcher that extracts readable text from result URLs to enrich
// thin snippets.
package search

import "context"

// Result is a single search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// Client executes web searches.
type Client interface {
	// Name identifies the provider, for logs.
	Name() string
	// Search runs one query and returns ranked results.
	Search(ctx context.Context, query string) ([]Result, error)
}
