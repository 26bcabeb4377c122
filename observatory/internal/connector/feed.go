package connector

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// maxFeedEntries bounds how many entries one feed contributes per run.
const maxFeedEntries = 100

// FeedConnector reads an RSS 2.0 or Atom 1.0 feed.
type FeedConnector struct {
	Location   string
	SourceName string
	Fetcher    *Fetcher
}

// Collect fetches and parses the feed, returning one item per entry with an
// http(s) link. Publication falls back from published to updated.
func (c *FeedConnector) Collect(ctx context.Context) ([]Item, error) {
	body, _, err := c.Fetcher.Get(ctx, c.Location)
	if err != nil {
		return nil, fmt.Errorf("feed %s: fetch: %w", c.SourceName, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("feed %s: parse: %w", c.SourceName, err)
	}

	entries := feed.Items
	if len(entries) > maxFeedEntries {
		entries = entries[:maxFeedEntries]
	}

	out := make([]Item, 0, len(entries))
	for _, entry := range entries {
		link := firstFeedLink(entry)
		if !isHTTP(link) {
			continue
		}

		published := dateOf(entry.PublishedParsed)
		if published == "" {
			published = dateOf(entry.UpdatedParsed)
		}

		snippet := entry.Description
		if snippet == "" {
			snippet = entry.Content
		}

		out = append(out, Item{
			URL:         link,
			Title:       CleanTitle(entry.Title),
			Snippet:     CleanSnippet(snippet),
			PublishedAt: published,
			SourceName:  c.SourceName,
		})
	}
	return out, nil
}

func firstFeedLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}
	for _, l := range entry.Links {
		if l != "" {
			return l
		}
	}
	return ""
}
