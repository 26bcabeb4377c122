package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// maxAPIResponseBytes caps how much of a search API response is read.
const maxAPIResponseBytes = 10 * 1024 * 1024

// APIConfig describes how to call and parse a JSON search API.
type APIConfig struct {
	// URLTemplate is the request URL with a {query} placeholder,
	// e.g. "https://api.search.brave.com/res/v1/web/search?q={query}".
	URLTemplate string `json:"url_template" yaml:"url_template"`
	Method      string `json:"method" yaml:"method"` // default GET
	// Headers are set on every request; values expand ${ENV_VAR} so API keys
	// stay out of config files.
	Headers map[string]string `json:"headers" yaml:"headers"`
	// ResultPath walks dot-notation into the response to the result array,
	// e.g. "web.results". Empty means the root is the array.
	ResultPath string `json:"result_path" yaml:"result_path"`
	// Fields maps hit fields to response keys,
	// e.g. {"title": "title", "url": "url", "snippet": "description"}.
	// Nil uses the hit field names directly.
	Fields  map[string]string `json:"fields" yaml:"fields"`
	Timeout time.Duration     `json:"-" yaml:"timeout"`
}

func (c *APIConfig) defaults() {
	if c.Method == "" {
		c.Method = http.MethodGet
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// APIProvider queries a JSON HTTP search API.
type APIProvider struct {
	config APIConfig
	client *http.Client
}

// NewAPIProvider builds a provider for the given API. A nil client gets a
// default with the configured timeout.
func NewAPIProvider(cfg APIConfig, client *http.Client) *APIProvider {
	cfg.defaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &APIProvider{config: cfg, client: client}
}

// Search substitutes the query into the URL template, calls the API, walks
// the configured result path, and maps fields into hits.
func (p *APIProvider) Search(ctx context.Context, query string, max int) ([]Hit, error) {
	if p.config.URLTemplate == "" {
		return nil, fmt.Errorf("websearch: api provider has no url_template")
	}
	reqURL := strings.ReplaceAll(p.config.URLTemplate, "{query}", url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, p.config.Method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: new request: %w", err)
	}
	for k, v := range p.config.Headers {
		req.Header.Set(k, os.Expand(v, os.Getenv))
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("websearch: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("websearch: read body: %w", err)
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("websearch: json decode: %w", err)
	}

	items, err := walkPath(raw, p.config.ResultPath)
	if err != nil {
		return nil, fmt.Errorf("websearch: walk path %q: %w", p.config.ResultPath, err)
	}

	hits := make([]Hit, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		h := extractHit(obj, p.config.Fields)
		if h.URL == "" {
			continue
		}
		hits = append(hits, h)
		if max > 0 && len(hits) >= max {
			break
		}
	}
	return hits, nil
}

// walkPath walks a dot-notation path into a JSON value, returning the array
// found at that path. An empty path means the root must be the array.
func walkPath(v any, path string) ([]any, error) {
	if path == "" {
		arr, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("root is not an array")
		}
		return arr, nil
	}

	current := v
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object at %q, got %T", part, current)
		}
		current, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("key %q not found", part)
		}
	}

	arr, ok := current.([]any)
	if !ok {
		return nil, fmt.Errorf("path %q is not an array", path)
	}
	return arr, nil
}

// extractHit maps configured field names to a Hit.
func extractHit(obj map[string]any, fields map[string]string) Hit {
	key := func(name string) string {
		if fields == nil {
			return name
		}
		if f, ok := fields[name]; ok {
			return f
		}
		return ""
	}
	var h Hit
	if k := key("url"); k != "" {
		h.URL = asString(obj[k])
	}
	if k := key("title"); k != "" {
		h.Title = asString(obj[k])
	}
	if k := key("snippet"); k != "" {
		h.Snippet = asString(obj[k])
	}
	if k := key("published_at"); k != "" {
		h.PublishedAt = asString(obj[k])
	}
	return h
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
