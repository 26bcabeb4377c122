package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// chatCompleter is the slice of the OpenAI client the provider needs.
// Tests substitute a canned implementation.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig configures the OpenAI-backed search provider.
type OpenAIConfig struct {
	APIKey  string `json:"-" yaml:"api_key"` // ${ENV} expanded by the config loader
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url" yaml:"base_url"`
}

func (c *OpenAIConfig) defaults() {
	if c.Model == "" {
		c.Model = openai.GPT4o
	}
}

// OpenAIProvider runs queries through an OpenAI chat completion, asking for a
// JSON array of results. Models answer in prose often enough that a URL
// extraction fallback handles non-JSON replies.
type OpenAIProvider struct {
	client chatCompleter
	model  string
}

// NewOpenAIProvider builds a provider from config.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	cfg.defaults()
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg), model: cfg.Model}
}

const searchPrompt = `Search the web for: %s

Return ONLY a JSON array of the most relevant news results, each object with
keys "url", "title", "snippet", and "published_at" (YYYY-MM-DD or null).
Only return factual search results. No commentary.`

// Search asks the model for results and parses the reply.
func (p *OpenAIProvider) Search(ctx context.Context, query string, max int) ([]Hit, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(searchPrompt, query)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("websearch: openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("websearch: openai: empty response")
	}

	hits := parseSearchReply(resp.Choices[0].Message.Content)
	if max > 0 && len(hits) > max {
		hits = hits[:max]
	}
	return hits, nil
}

var urlPattern = regexp.MustCompile(`https?://[^\s)\]"]+`)

// parseSearchReply tries the structured form first, then falls back to
// harvesting URLs out of free text.
func parseSearchReply(content string) []Hit {
	if hits := parseJSONHits(content); hits != nil {
		return hits
	}

	var out []Hit
	seen := make(map[string]bool)
	for _, m := range urlPattern.FindAllString(content, -1) {
		u := strings.TrimRight(m, ".,;")
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, Hit{URL: u})
	}
	return out
}

// parseJSONHits extracts a JSON array of hits, tolerating markdown fences and
// surrounding prose. Returns nil when no array parses.
func parseJSONHits(content string) []Hit {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil
	}

	var raw []struct {
		URL         string `json:"url"`
		Title       string `json:"title"`
		Snippet     string `json:"snippet"`
		PublishedAt string `json:"published_at"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil
	}

	hits := make([]Hit, 0, len(raw))
	for _, r := range raw {
		if r.URL == "" {
			continue
		}
		hits = append(hits, Hit{URL: r.URL, Title: r.Title, Snippet: r.Snippet, PublishedAt: r.PublishedAt})
	}
	return hits
}
