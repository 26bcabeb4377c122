package observatory

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Signal field caps.
const (
	maxSignalTitle   = 500
	maxSignalSummary = 2000
)

// noiseTitles marks navigation pages that carry no evidence. Matched against
// the lowercased trimmed title.
var noiseTitles = map[string]bool{
	"home": true, "news": true, "about": true, "about us": true,
	"contact": true, "contact us": true, "cookie policy": true,
	"privacy policy": true, "terms": true, "search": true, "sitemap": true,
	"untitled": true,
}

// ExtractDrafts classifies one run's candidate items into signal drafts.
// Pure: no I/O, no clock reads beyond the run's lookback window. Items
// judged non-substantive are silently excluded; they stay visible in the
// candidate evidence set for audit.
func ExtractDrafts(run RunContext, items []*CandidateItem, tax *Taxonomy) []SignalDraft {
	drafts := make([]SignalDraft, 0, len(items))
	for _, item := range items {
		if d, ok := extractOne(run, item, tax); ok {
			drafts = append(drafts, d)
		}
	}
	return drafts
}

func extractOne(run RunContext, item *CandidateItem, tax *Taxonomy) (SignalDraft, bool) {
	title := strings.TrimSpace(item.Title)
	snippet := strings.TrimSpace(item.Snippet)
	if title == "" && snippet == "" {
		return SignalDraft{}, false
	}
	if noiseTitles[strings.ToLower(title)] {
		return SignalDraft{}, false
	}

	text := title + " " + snippet
	axis, axisValue := QueryAxis(item.QueryID)

	// A region-attributed candidate must actually mention its region;
	// otherwise a "SEA polyurethane news" query would admit China coverage
	// into a SEA-only report.
	if axis == "region" {
		region := regionForSlug(run.Regions, axisValue)
		if region != "" && !tax.MatchRegion(region, text) {
			return SignalDraft{}, false
		}
	}

	signalType := tax.ClassifyType(text)
	entities := matchEntities(run.TrackedEntities, text)
	regions := matchRegions(run.Regions, text, tax)
	vclinks := matchValueChain(run, axis, axisValue, text, tax)

	confidence := 2
	if signalType != SignalOther {
		confidence++
	}
	if len(entities) > 0 {
		confidence++
	}
	if publishedWithin(item.PublishedAt, run.LookbackStart) {
		confidence++
	}
	if confidence > 5 {
		confidence = 5
	}

	if title == "" {
		title = "Untitled"
	}
	summary := snippet
	if summary == "" {
		summary = title
	}

	draft := SignalDraft{
		CanonicalURL:    item.CanonicalURL,
		Title:           truncate(title, maxSignalTitle),
		Summary:         truncate(summary, maxSignalSummary),
		SignalType:      signalType,
		Entities:        entities,
		Regions:         regions,
		ValueChainLinks: vclinks,
		Confidence:      confidence,
		CandidateItemID: item.ID,
	}
	draft.IdentityKey = identityKey(draft, item.PublishedAt)
	return draft, true
}

// identityKey derives the cross-run merge key: the canonical URL when one
// exists, else a content fingerprint of normalized title + date + primary
// entity.
func identityKey(d SignalDraft, publishedAt string) string {
	if d.CanonicalURL != "" {
		return d.CanonicalURL
	}
	primary := ""
	if len(d.Entities) > 0 {
		primary = d.Entities[0]
	}
	material := strings.ToLower(strings.Join(strings.Fields(d.Title), " ")) +
		"|" + publishedAt + "|" + strings.ToLower(primary)
	sum := sha256.Sum256([]byte(material))
	return "fp:" + hex.EncodeToString(sum[:])
}

// regionForSlug recovers the run region matching a query id slug.
func regionForSlug(regions []string, s string) string {
	for _, r := range regions {
		if slug(r) == s {
			return r
		}
	}
	return ""
}

func matchEntities(entities []TrackedEntity, text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, e := range entities {
		for _, a := range append([]string{e.Name}, e.Aliases...) {
			a = strings.TrimSpace(a)
			if len(a) >= 2 && strings.Contains(lower, strings.ToLower(a)) {
				out = append(out, e.Name)
				break
			}
		}
	}
	return out
}

func matchRegions(regions []string, text string, tax *Taxonomy) []string {
	var out []string
	for _, r := range regions {
		if tax.MatchRegion(r, text) {
			out = append(out, r)
		}
	}
	return out
}

// matchValueChain tags value-chain positions: query attribution first, then
// keyword presence of the link's display form.
func matchValueChain(run RunContext, axis, axisValue, text string, tax *Taxonomy) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(link string) {
		if link != "" && !seen[link] {
			seen[link] = true
			out = append(out, link)
		}
	}
	if axis == "vcl" {
		add(axisValue)
	}
	lower := strings.ToLower(text)
	for _, link := range tax.ValueChainLinks {
		if strings.Contains(lower, strings.ReplaceAll(link, "_", " ")) {
			add(link)
		}
	}
	return out
}

func publishedWithin(publishedAt string, lookbackStart time.Time) bool {
	if publishedAt == "" || lookbackStart.IsZero() {
		return false
	}
	d, err := time.Parse("2006-01-02", publishedAt)
	if err != nil {
		return false
	}
	return !d.Before(lookbackStart)
}

// truncate caps a string at n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
