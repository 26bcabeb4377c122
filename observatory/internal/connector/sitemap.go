package connector

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

const (
	// maxSitemapURLs bounds how many URLs one sitemap contributes per run.
	maxSitemapURLs = 200
	// maxChildSitemaps bounds sitemapindex expansion (one level deep).
	maxChildSitemaps = 5
)

// SitemapConnector reads a sitemap or sitemap index. Sitemaps rarely carry
// titles or snippets; items surface URL and date only, and downstream
// extraction decides whether they are substantive.
type SitemapConnector struct {
	Location   string
	SourceName string
	Fetcher    *Fetcher
	// Cutoff drops URLs whose lastmod predates it. Zero disables the filter;
	// URLs without a date are always kept.
	Cutoff time.Time
}

type sitemapURL struct {
	Loc     string      `xml:"loc"`
	LastMod string      `xml:"lastmod"`
	News    sitemapNews `xml:"news"`
}

type sitemapNews struct {
	PublicationDate string `xml:"publication_date"`
	Title           string `xml:"title"`
}

type urlset struct {
	URLs []sitemapURL `xml:"url"`
}

type sitemapRef struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	Sitemaps []sitemapRef `xml:"sitemap"`
}

// Collect fetches the sitemap. A sitemapindex root is expanded one level:
// child sitemaps are fetched in listed order until the URL budget is spent.
func (c *SitemapConnector) Collect(ctx context.Context) ([]Item, error) {
	body, _, err := c.Fetcher.Get(ctx, c.Location)
	if err != nil {
		return nil, fmt.Errorf("sitemap %s: fetch: %w", c.SourceName, err)
	}

	switch rootElement(body) {
	case "urlset":
		items, err := c.parseURLSet(body)
		if err != nil {
			return nil, fmt.Errorf("sitemap %s: %w", c.SourceName, err)
		}
		return items, nil
	case "sitemapindex":
		return c.collectIndex(ctx, body)
	default:
		return nil, fmt.Errorf("sitemap %s: unrecognized root element", c.SourceName)
	}
}

func (c *SitemapConnector) collectIndex(ctx context.Context, body []byte) ([]Item, error) {
	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("sitemap %s: parse index: %w", c.SourceName, err)
	}

	refs := index.Sitemaps
	if len(refs) > maxChildSitemaps {
		refs = refs[:maxChildSitemaps]
	}

	var out []Item
	for _, ref := range refs {
		loc := strings.TrimSpace(ref.Loc)
		if !isHTTP(loc) {
			continue
		}
		child, _, err := c.Fetcher.Get(ctx, loc)
		if err != nil {
			// One unreadable child does not fail the whole index.
			continue
		}
		items, err := c.parseURLSet(child)
		if err != nil {
			continue
		}
		out = append(out, items...)
		if len(out) >= maxSitemapURLs {
			return out[:maxSitemapURLs], nil
		}
	}
	return out, nil
}

func (c *SitemapConnector) parseURLSet(body []byte) ([]Item, error) {
	var set urlset
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parse urlset: %w", err)
	}

	out := make([]Item, 0, len(set.URLs))
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Loc)
		if !isHTTP(loc) {
			continue
		}

		date := normalizeDate(u.News.PublicationDate)
		if date == "" {
			date = normalizeDate(u.LastMod)
		}
		if !c.Cutoff.IsZero() && date != "" {
			if d, err := time.Parse("2006-01-02", date); err == nil && d.Before(c.Cutoff) {
				continue
			}
		}

		out = append(out, Item{
			URL:         loc,
			Title:       CleanTitle(u.News.Title),
			PublishedAt: date,
			SourceName:  c.SourceName,
		})
		if len(out) >= maxSitemapURLs {
			break
		}
	}
	return out, nil
}

// rootElement returns the local name of the first XML start element.
func rootElement(data []byte) string {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return strings.ToLower(se.Name.Local)
		}
	}
}
