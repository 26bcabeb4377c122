package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func TestAPIProviderSearch(t *testing.T) {
	// WHAT: {query} substitution, header env expansion, result_path walking,
	// and field mapping against a Brave-shaped response.
	t.Setenv("TEST_SEARCH_KEY", "sekrit")

	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.Header.Get("X-Subscription-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web": {"results": [
			{"title": "Plant opens", "link": "https://example.com/a", "description": "40kt line"},
			{"title": "No link here"},
			{"title": "Second", "link": "https://example.com/b", "description": "more"}
		]}}`))
	}))
	t.Cleanup(srv.Close)

	p := NewAPIProvider(APIConfig{
		URLTemplate: srv.URL + "/search?q={query}",
		Headers:     map[string]string{"X-Subscription-Token": "${TEST_SEARCH_KEY}"},
		ResultPath:  "web.results",
		Fields:      map[string]string{"title": "title", "url": "link", "snippet": "description"},
	}, nil)

	hits, err := p.Search(context.Background(), "PU plant expansion", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "PU plant expansion" {
		t.Errorf("query param: got %q", gotQuery)
	}
	if gotKey != "sekrit" {
		t.Errorf("header env expansion: got %q", gotKey)
	}
	if len(hits) != 2 {
		t.Fatalf("hits: got %d, want 2 (itemless entry dropped)", len(hits))
	}
	if hits[0].URL != "https://example.com/a" || hits[0].Title != "Plant opens" || hits[0].Snippet != "40kt line" {
		t.Errorf("hit[0]: got %+v", hits[0])
	}
}

func TestAPIProviderMaxCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"url":"https://a"},{"url":"https://b"},{"url":"https://c"}]`))
	}))
	t.Cleanup(srv.Close)

	p := NewAPIProvider(APIConfig{URLTemplate: srv.URL + "?q={query}"}, nil)
	hits, err := p.Search(context.Background(), "x", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("hits: got %d, want 2", len(hits))
	}
}

func TestAPIProviderBadPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"web": {"results": "not-an-array"}}`))
	}))
	t.Cleanup(srv.Close)

	p := NewAPIProvider(APIConfig{URLTemplate: srv.URL + "?q={query}", ResultPath: "web.results"}, nil)
	if _, err := p.Search(context.Background(), "x", 5); err == nil {
		t.Fatal("expected walk error for non-array path")
	}
}

func TestAPIProviderHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	p := NewAPIProvider(APIConfig{URLTemplate: srv.URL + "?q={query}"}, nil)
	if _, err := p.Search(context.Background(), "x", 5); err == nil {
		t.Fatal("expected error for 429")
	}
}

// cannedChat returns a fixed completion for any request.
type cannedChat struct {
	content string
	err     error
}

func (c cannedChat) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: c.content}},
		},
	}, nil
}

func TestOpenAIProviderJSONReply(t *testing.T) {
	// WHAT: A fenced JSON array parses into structured hits.
	content := "Here are the results:\n```json\n" +
		`[{"url": "https://example.com/a", "title": "A", "snippet": "s", "published_at": "2025-06-01"},
		  {"url": "https://example.com/b", "title": "B", "snippet": "", "published_at": null}]` +
		"\n```"
	p := &OpenAIProvider{client: cannedChat{content: content}, model: "test"}

	hits, err := p.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits: got %d, want 2", len(hits))
	}
	if hits[0].PublishedAt != "2025-06-01" {
		t.Errorf("published: got %q", hits[0].PublishedAt)
	}
	if hits[1].PublishedAt != "" {
		t.Errorf("null published: got %q", hits[1].PublishedAt)
	}
}

func TestOpenAIProviderProseFallback(t *testing.T) {
	// WHY: models sometimes answer in prose despite the prompt; the provider
	// harvests URLs rather than returning nothing.
	content := `I found two relevant articles:
1. https://example.com/story-one, which covers the expansion.
2. https://example.com/story-two (announced yesterday).
3. https://example.com/story-one again.`
	p := &OpenAIProvider{client: cannedChat{content: content}, model: "test"}

	hits, err := p.Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits: got %d, want 2 deduped urls: %+v", len(hits), hits)
	}
	if hits[0].URL != "https://example.com/story-one" {
		t.Errorf("hit[0]: got %q (trailing punctuation should be stripped)", hits[0].URL)
	}
}

func TestOpenAIProviderMaxCap(t *testing.T) {
	content := `[{"url":"https://a"},{"url":"https://b"},{"url":"https://c"}]`
	p := &OpenAIProvider{client: cannedChat{content: content}, model: "test"}

	hits, err := p.Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("hits: got %d, want 1", len(hits))
	}
}

func TestOpenAIProviderError(t *testing.T) {
	p := &OpenAIProvider{client: cannedChat{err: errors.New("boom")}, model: "test"}
	if _, err := p.Search(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error")
	}
}
