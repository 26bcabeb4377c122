package observatory

import (
	"strings"
	"testing"
	"time"
)

func extractRun() RunContext {
	return RunContext{
		RunID:   "run_1",
		Regions: []string{"SEA", "China"},
		TrackedEntities: []TrackedEntity{
			{Name: "Coverstro", Aliases: []string{"Coverstro AG"}},
		},
		LookbackStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestExtractDraftsClassification(t *testing.T) {
	items := []*CandidateItem{{
		ID:           "cand_1",
		CanonicalURL: "https://example.com/plant",
		Title:        "Coverstro announces capacity expansion at new plant",
		Snippet:      "40kt MDI line in Singapore",
		PublishedAt:  "2025-06-10",
		QueryID:      "cat_capacity",
	}}

	drafts := ExtractDrafts(extractRun(), items, DefaultTaxonomy())
	if len(drafts) != 1 {
		t.Fatalf("drafts: got %d, want 1", len(drafts))
	}
	d := drafts[0]
	if d.SignalType != SignalCapacityAssets {
		t.Errorf("type: got %q", d.SignalType)
	}
	if len(d.Entities) != 1 || d.Entities[0] != "Coverstro" {
		t.Errorf("entities: got %v", d.Entities)
	}
	if len(d.Regions) != 1 || d.Regions[0] != "SEA" {
		t.Errorf("regions: got %v (Singapore is a SEA keyword)", d.Regions)
	}
	// Base 2, +1 typed, +1 entity, +1 recent = 5.
	if d.Confidence != 5 {
		t.Errorf("confidence: got %d, want 5", d.Confidence)
	}
	if d.IdentityKey != "https://example.com/plant" {
		t.Errorf("identity: got %q, want canonical url", d.IdentityKey)
	}
	if d.CandidateItemID != "cand_1" {
		t.Errorf("candidate id: got %q", d.CandidateItemID)
	}
}

func TestExtractDraftsBaseline(t *testing.T) {
	// No type match, no entity, no date: base confidence, type other,
	// summary falls back to the title.
	items := []*CandidateItem{{
		ID:           "cand_2",
		CanonicalURL: "https://example.com/misc",
		Title:        "An unrelated weather report",
	}}
	drafts := ExtractDrafts(extractRun(), items, DefaultTaxonomy())
	if len(drafts) != 1 {
		t.Fatalf("drafts: got %d, want 1", len(drafts))
	}
	d := drafts[0]
	if d.SignalType != SignalOther {
		t.Errorf("type: got %q", d.SignalType)
	}
	if d.Confidence != 2 {
		t.Errorf("confidence: got %d, want 2", d.Confidence)
	}
	if d.Summary != "An unrelated weather report" {
		t.Errorf("summary: got %q", d.Summary)
	}
}

func TestExtractDraftsDropsNoise(t *testing.T) {
	tests := []struct {
		name string
		item CandidateItem
	}{
		{"empty", CandidateItem{CanonicalURL: "https://x.com/a"}},
		{"nav title", CandidateItem{CanonicalURL: "https://x.com/b", Title: "Contact Us"}},
		{"cookie", CandidateItem{CanonicalURL: "https://x.com/c", Title: "cookie policy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := tt.item
			drafts := ExtractDrafts(extractRun(), []*CandidateItem{&item}, DefaultTaxonomy())
			if len(drafts) != 0 {
				t.Fatalf("drafts: got %d, want 0", len(drafts))
			}
		})
	}
}

func TestExtractDraftsRegionRelevanceFilter(t *testing.T) {
	// WHAT: A candidate attributed to a region query must mention that
	// region; a China article surfaced by the SEA query is dropped.
	offTopic := &CandidateItem{
		ID:           "cand_3",
		CanonicalURL: "https://example.com/china-story",
		Title:        "China polyol producers raise prices",
		QueryID:      "region_sea",
	}
	onTopic := &CandidateItem{
		ID:           "cand_4",
		CanonicalURL: "https://example.com/sg-story",
		Title:        "Singapore foam plant expands",
		QueryID:      "region_sea",
	}

	drafts := ExtractDrafts(extractRun(), []*CandidateItem{offTopic, onTopic}, DefaultTaxonomy())
	if len(drafts) != 1 {
		t.Fatalf("drafts: got %d, want 1", len(drafts))
	}
	if drafts[0].CandidateItemID != "cand_4" {
		t.Errorf("kept: got %q, want the on-topic item", drafts[0].CandidateItemID)
	}
}

func TestExtractDraftsFingerprintIdentity(t *testing.T) {
	// WHY: search hits sometimes arrive without a usable URL after
	// canonicalization upstream; identity degrades to a content fingerprint
	// stable across whitespace and case differences.
	a := &CandidateItem{Title: "Coverstro  Expands   Plant", PublishedAt: "2025-06-10"}
	b := &CandidateItem{Title: "coverstro expands plant", PublishedAt: "2025-06-10"}

	drafts := ExtractDrafts(extractRun(), []*CandidateItem{a, b}, DefaultTaxonomy())
	if len(drafts) != 2 {
		t.Fatalf("drafts: got %d, want 2", len(drafts))
	}
	if !strings.HasPrefix(drafts[0].IdentityKey, "fp:") {
		t.Fatalf("identity: got %q, want fingerprint", drafts[0].IdentityKey)
	}
	if drafts[0].IdentityKey != drafts[1].IdentityKey {
		t.Errorf("fingerprints differ:\n%s\n%s", drafts[0].IdentityKey, drafts[1].IdentityKey)
	}
}

func TestExtractDraftsValueChainAttribution(t *testing.T) {
	item := &CandidateItem{
		CanonicalURL: "https://example.com/vc",
		Title:        "System houses consolidate",
		QueryID:      "vcl_raw_materials",
	}
	drafts := ExtractDrafts(extractRun(), []*CandidateItem{item}, DefaultTaxonomy())
	if len(drafts) != 1 {
		t.Fatalf("drafts: got %d, want 1", len(drafts))
	}
	got := drafts[0].ValueChainLinks
	if len(got) != 2 || got[0] != "raw_materials" || got[1] != "system_houses" {
		t.Errorf("value chain: got %v, want query attribution + keyword match", got)
	}
}

func TestExtractDraftsCaps(t *testing.T) {
	item := &CandidateItem{
		CanonicalURL: "https://example.com/long",
		Title:        strings.Repeat("t", 600),
		Snippet:      strings.Repeat("s", 3000),
	}
	drafts := ExtractDrafts(extractRun(), []*CandidateItem{item}, DefaultTaxonomy())
	if len(drafts) != 1 {
		t.Fatalf("drafts: got %d, want 1", len(drafts))
	}
	if len(drafts[0].Title) != maxSignalTitle {
		t.Errorf("title length: got %d", len(drafts[0].Title))
	}
	if len(drafts[0].Summary) != maxSignalSummary {
		t.Errorf("summary length: got %d", len(drafts[0].Summary))
	}
}

func TestPublishedWithin(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		date string
		want bool
	}{
		{"2025-06-10", true},
		{"2025-06-01", true},
		{"2025-05-31", false},
		{"", false},
		{"not-a-date", false},
	}
	for _, tt := range tests {
		if got := publishedWithin(tt.date, start); got != tt.want {
			t.Errorf("publishedWithin(%q): got %v, want %v", tt.date, got, tt.want)
		}
	}
}
