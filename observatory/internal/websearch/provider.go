// Package websearch executes planned queries against pluggable search
// backends.
//
// Two providers are supported:
//   - APIProvider: pure HTTP JSON (e.g. Brave Search, SerpAPI).
//   - OpenAIProvider: chat-completion web search with structured-output
//     parsing and a plain-text fallback.
package websearch

import "context"

// Hit is a single search result.
type Hit struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	PublishedAt string `json:"published_at"` // YYYY-MM-DD, "" when unknown
}

// Provider executes one query and returns up to max hits. Providers return
// an error only for backend failures; an empty result set is not an error.
type Provider interface {
	Search(ctx context.Context, query string, max int) ([]Hit, error)
}
