// Package connector pulls candidate evidence tuples from configured sources.
//
// Each source kind gets its own Connector behind a single capability
// interface. Connectors are run-scoped and stateless: they read one
// configured location and return a finite batch of raw candidates. A failing
// connector isolates its failure to its own source; the engine logs it and
// continues with zero items.
package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/stefanhermes-code/Observatory/observatory/internal/store"
)

// Item is one raw candidate tuple produced by a connector.
type Item struct {
	URL         string
	Title       string
	Snippet     string
	PublishedAt string // YYYY-MM-DD, "" when unknown
	SourceName  string
}

// Connector produces a finite sequence of raw candidate tuples for one
// configured source.
type Connector interface {
	Collect(ctx context.Context) ([]Item, error)
}

// Selectors holds the declarative extraction rules for listing sources,
// parsed from the source's selectors_json.
type Selectors struct {
	ItemSelector  string `json:"item_selector"`
	LinkSelector  string `json:"link_selector"`
	TitleSelector string `json:"title_selector"`
	DateSelector  string `json:"date_selector"`
	DateAttr      string `json:"date_attr"`
	MaxItems      int    `json:"max_items"`
}

func (s *Selectors) defaults() {
	if s.ItemSelector == "" {
		s.ItemSelector = "article, .news-item, li"
	}
	if s.LinkSelector == "" {
		s.LinkSelector = "a"
	}
	if s.TitleSelector == "" {
		s.TitleSelector = "a"
	}
	if s.DateSelector == "" {
		s.DateSelector = "time"
	}
	if s.DateAttr == "" {
		s.DateAttr = "datetime"
	}
	if s.MaxItems <= 0 || s.MaxItems > 100 {
		s.MaxItems = 50
	}
}

// ForSource builds the connector matching a source's kind. The cutoff bounds
// sitemap freshness (zero disables it). Kind "search" has no connector:
// search-kind sources configure the search layer, not ingestion.
func ForSource(src *store.Source, f *Fetcher, cutoff time.Time) (Connector, error) {
	switch src.Kind {
	case "feed":
		return &FeedConnector{Location: src.Location, SourceName: src.Name, Fetcher: f}, nil
	case "sitemap":
		return &SitemapConnector{Location: src.Location, SourceName: src.Name, Fetcher: f, Cutoff: cutoff}, nil
	case "listing":
		var sel Selectors
		if src.SelectorsJSON != "" && src.SelectorsJSON != "{}" {
			if err := json.Unmarshal([]byte(src.SelectorsJSON), &sel); err != nil {
				return nil, fmt.Errorf("connector: source %s selectors: %w", src.ID, err)
			}
		}
		base := src.BaseURL
		if base == "" {
			base = src.Location
		}
		return &ListingConnector{
			Location: src.Location, SourceName: src.Name, BaseURL: base,
			Selectors: sel, Fetcher: f,
		}, nil
	default:
		return nil, fmt.Errorf("connector: no connector for source kind %q", src.Kind)
	}
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// normalizeDate reduces a raw date string to YYYY-MM-DD, or "" when the
// prefix is not an ISO date.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 10 && isoDate.MatchString(raw) {
		return raw[:10]
	}
	return ""
}

// dateOf formats a parsed timestamp as YYYY-MM-DD, "" for nil.
func dateOf(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func isHTTP(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
