package connector

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ListingConnector extracts links from a configured HTML listing page using
// the source's declarative selectors. It is the fallback for publishers that
// expose neither a feed nor a sitemap.
type ListingConnector struct {
	Location   string
	SourceName string
	BaseURL    string
	Selectors  Selectors
	Fetcher    *Fetcher
}

// Collect fetches the listing page and applies the selectors: one item per
// matched element with a resolvable http(s) link.
func (c *ListingConnector) Collect(ctx context.Context) ([]Item, error) {
	sel := c.Selectors
	sel.defaults()

	body, _, err := c.Fetcher.Get(ctx, c.Location)
	if err != nil {
		return nil, fmt.Errorf("listing %s: fetch: %w", c.SourceName, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("listing %s: parse: %w", c.SourceName, err)
	}

	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("listing %s: base url: %w", c.SourceName, err)
	}

	var out []Item
	doc.Find(sel.ItemSelector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		link := item.Find(sel.LinkSelector).First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		resolved := resolveHref(base, strings.TrimSpace(href))
		if !isHTTP(resolved) {
			return true
		}

		title := strings.TrimSpace(item.Find(sel.TitleSelector).First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}

		var published string
		if dateEl := item.Find(sel.DateSelector).First(); dateEl.Length() > 0 {
			raw, ok := dateEl.Attr(sel.DateAttr)
			if !ok || raw == "" {
				raw = dateEl.Text()
			}
			published = normalizeDate(raw)
		}

		out = append(out, Item{
			URL:         resolved,
			Title:       CleanTitle(title),
			PublishedAt: published,
			SourceName:  c.SourceName,
		})
		return len(out) < sel.MaxItems
	})

	return out, nil
}

// resolveHref resolves a possibly relative href against the source base URL.
func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	return base.ResolveReference(ref).String()
}
