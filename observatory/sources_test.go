package observatory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAddSourceValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		src  Source
	}{
		{"missing name", Source{Location: "https://example.com/feed"}},
		{"missing location", Source{Name: "x"}},
		{"bad kind", Source{Name: "x", Location: "https://example.com", Kind: "carrier-pigeon"}},
		{"bad trust tier", Source{Name: "x", Location: "https://example.com", TrustTier: 9}},
		{"bad selectors", Source{Name: "x", Location: "https://example.com", SelectorsJSON: "{nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.src
			_, err := svc.AddSource(ctx, &src)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestAddSourceDuplicateLocation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	src := &Source{Name: "a", Kind: "feed", Location: "https://example.com/feed", Enabled: true}
	if _, err := svc.AddSource(ctx, src); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	dup := &Source{Name: "b", Kind: "feed", Location: "https://example.com/feed"}
	if _, err := svc.AddSource(ctx, dup); !errors.Is(err, ErrDuplicateSource) {
		t.Fatalf("got %v, want ErrDuplicateSource", err)
	}
}

func TestUpdateSourceNotFound(t *testing.T) {
	svc := newTestService(t)
	err := svc.UpdateSource(context.Background(), &Source{
		ID: "src_missing", Name: "x", Location: "https://example.com",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestUpdateSourceUnsetTrustTierDefaults(t *testing.T) {
	// An update that leaves the tier unset must not write tier 0 through;
	// the stored tier stays in 1..4 like on insert.
	svc := newTestService(t)
	ctx := context.Background()

	src := &Source{Name: "a", Kind: "feed", Location: "https://example.com/feed", TrustTier: 1, Enabled: true}
	id, err := svc.AddSource(ctx, src)
	if err != nil {
		t.Fatalf("AddSource: %v", err)
	}

	if err := svc.UpdateSource(ctx, &Source{
		ID: id, Name: "a renamed", Kind: "feed", Location: "https://example.com/feed", Enabled: true,
	}); err != nil {
		t.Fatalf("UpdateSource: %v", err)
	}

	got, err := svc.store.GetSource(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "a renamed" {
		t.Errorf("name: got %q", got.Name)
	}
	if got.TrustTier != 2 {
		t.Errorf("trust tier: got %d, want 2", got.TrustTier)
	}
}

func TestSeedSources(t *testing.T) {
	// WHAT: YAML seeding registers new sources and skips locations that
	// already exist, so re-seeding is harmless.
	svc := newTestService(t)
	ctx := context.Background()

	seed := `sources:
  - name: plantnews
    kind: feed
    location: https://example.com/feed.xml
    trust_tier: 1
  - name: portal
    kind: listing
    location: https://portal.example/news
    base_url: https://portal.example
    selectors:
      item_selector: "article"
      max_items: 20
  - name: disabled one
    kind: sitemap
    location: https://example.org/sitemap.xml
    enabled: false
`
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	added, err := svc.SeedSources(ctx, path)
	if err != nil {
		t.Fatalf("SeedSources: %v", err)
	}
	if added != 3 {
		t.Fatalf("added: got %d, want 3", added)
	}

	again, err := svc.SeedSources(ctx, path)
	if err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	if again != 0 {
		t.Errorf("re-seed added: got %d, want 0", again)
	}

	sources, err := svc.Sources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]*Source)
	for _, s := range sources {
		byName[s.Name] = s
	}
	if byName["plantnews"].TrustTier != 1 {
		t.Errorf("trust tier: got %d", byName["plantnews"].TrustTier)
	}
	if byName["disabled one"].Enabled {
		t.Error("enabled: explicit false ignored")
	}
	if byName["portal"].SelectorsJSON == "{}" || byName["portal"].SelectorsJSON == "" {
		t.Errorf("selectors: got %q", byName["portal"].SelectorsJSON)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Sources != 3 || stats.Signals != 0 {
		t.Errorf("stats: got %+v", stats)
	}
}
