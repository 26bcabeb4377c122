package observatory

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stefanhermes-code/Observatory/dbopen"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	db := dbopen.OpenMemory(t)
	cfg := &Config{Engine: EngineConfig{SkipValidation: true}}
	svc, err := New(db, cfg, testLogger(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func draft(identity string, confidence int) SignalDraft {
	return SignalDraft{
		IdentityKey:  identity,
		CanonicalURL: identity,
		Title:        "Plant expansion",
		Summary:      "A plant expands",
		SignalType:   SignalCapacityAssets,
		Entities:     []string{"Coverstro"},
		Regions:      []string{"EMEA"},
		Confidence:   confidence,
	}
}

func TestRecordSignalsNewAndRecurrence(t *testing.T) {
	// WHAT: the same identity key across two runs yields one signal with
	// two occurrences, first_seen from run 1 and last_seen from run 2.
	svc := newTestService(t)
	ctx := context.Background()

	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t1 }

	run1 := RunContext{RunID: "run_1", WorkspaceID: "ws", SpecificationID: "spec"}
	sum1, err := svc.RecordSignals(ctx, run1, []SignalDraft{draft("https://example.com/a", 3)})
	if err != nil {
		t.Fatalf("RecordSignals run 1: %v", err)
	}
	if sum1.Created != 1 || sum1.Recurrences != 0 || sum1.Occurrences != 1 {
		t.Fatalf("run 1 summary: %+v", sum1)
	}

	t2 := t1.Add(72 * time.Hour)
	svc.now = func() time.Time { return t2 }

	run2 := RunContext{RunID: "run_2", WorkspaceID: "ws", SpecificationID: "spec"}
	sum2, err := svc.RecordSignals(ctx, run2, []SignalDraft{draft("https://example.com/a", 2)})
	if err != nil {
		t.Fatalf("RecordSignals run 2: %v", err)
	}
	if sum2.Created != 0 || sum2.Recurrences != 1 || sum2.Occurrences != 1 {
		t.Fatalf("run 2 summary: %+v", sum2)
	}

	sig, err := svc.store.GetSignalByIdentity(ctx, "https://example.com/a")
	if err != nil || sig == nil {
		t.Fatalf("GetSignalByIdentity: %v %v", sig, err)
	}
	if sig.FirstSeenAt != t1.UnixMilli() {
		t.Errorf("first_seen: got %d, want run 1 time", sig.FirstSeenAt)
	}
	if sig.LastSeenAt != t2.UnixMilli() {
		t.Errorf("last_seen: got %d, want run 2 time", sig.LastSeenAt)
	}
	// WHY: confidence never decreases; the weaker run-2 draft must not
	// lower it.
	if sig.Confidence != 3 {
		t.Errorf("confidence: got %d, want 3", sig.Confidence)
	}
	n, err := svc.store.CountSignalOccurrences(ctx, sig.ID)
	if err != nil {
		t.Fatalf("CountSignalOccurrences: %v", err)
	}
	if n != 2 {
		t.Errorf("occurrences: got %d, want 2", n)
	}
}

func TestRecordSignalsOneOccurrencePerRun(t *testing.T) {
	// Two drafts with the same identity in one run: one occurrence, first
	// extraction wins; the second only merges.
	svc := newTestService(t)
	ctx := context.Background()
	run := RunContext{RunID: "run_1"}

	d1 := draft("https://example.com/a", 2)
	d1.CandidateItemID = "cand_first"
	d2 := draft("https://example.com/a", 4)
	d2.CandidateItemID = "cand_second"
	d2.Regions = []string{"China"}

	sum, err := svc.RecordSignals(ctx, run, []SignalDraft{d1, d2})
	if err != nil {
		t.Fatalf("RecordSignals: %v", err)
	}
	if sum.Created != 1 || sum.Recurrences != 1 || sum.Occurrences != 1 {
		t.Fatalf("summary: %+v", sum)
	}

	sig, err := svc.store.GetSignalByIdentity(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("GetSignalByIdentity: %v", err)
	}
	if sig.Confidence != 4 {
		t.Errorf("confidence: got %d, want max of drafts", sig.Confidence)
	}
	// Tag union is sorted and stable.
	if sig.RegionsJSON != `["China","EMEA"]` {
		t.Errorf("regions: got %s", sig.RegionsJSON)
	}
}

func TestRecordSignalsTypeUpgrade(t *testing.T) {
	// An untyped signal picks up the first concrete classification; a later
	// conflicting classification does not overwrite it.
	svc := newTestService(t)
	ctx := context.Background()

	d := draft("https://example.com/a", 2)
	d.SignalType = SignalOther
	if _, err := svc.RecordSignals(ctx, RunContext{RunID: "r1"}, []SignalDraft{d}); err != nil {
		t.Fatal(err)
	}

	d.SignalType = SignalPricingFeedstocks
	if _, err := svc.RecordSignals(ctx, RunContext{RunID: "r2"}, []SignalDraft{d}); err != nil {
		t.Fatal(err)
	}
	d.SignalType = SignalSafetyIncidents
	if _, err := svc.RecordSignals(ctx, RunContext{RunID: "r3"}, []SignalDraft{d}); err != nil {
		t.Fatal(err)
	}

	sig, err := svc.store.GetSignalByIdentity(ctx, "https://example.com/a")
	if err != nil {
		t.Fatal(err)
	}
	if sig.SignalType != SignalPricingFeedstocks {
		t.Errorf("type: got %q", sig.SignalType)
	}
}

func TestRecordSignalsInvalidDraft(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.RecordSignals(context.Background(), RunContext{RunID: "r"},
		[]SignalDraft{{Title: "no identity"}})
	if err == nil {
		t.Fatal("expected error for draft without identity key")
	}
}

func TestRunSignalExtractionEndToEnd(t *testing.T) {
	// Candidates persisted by ingestion flow through extraction into
	// signals with citations.
	svc := newTestService(t)
	ctx := context.Background()
	run := RunContext{RunID: "run_1", WorkspaceID: "ws", SpecificationID: "spec"}

	item := &CandidateItem{
		ID:               "cand_1",
		RunID:            "run_1",
		SourceName:       "plantnews",
		URL:              "https://example.com/plant?utm_source=x",
		CanonicalURL:     "https://example.com/plant",
		Title:            "New plant capacity expansion",
		Snippet:          "40kt line",
		PublishedAt:      "2025-06-10",
		ValidationStatus: "not_checked",
		RetrievedAt:      time.Now().UnixMilli(),
	}
	if _, err := svc.store.InsertCandidate(ctx, item); err != nil {
		t.Fatalf("InsertCandidate: %v", err)
	}

	sum, err := svc.RunSignalExtraction(ctx, run)
	if err != nil {
		t.Fatalf("RunSignalExtraction: %v", err)
	}
	if sum.Created != 1 || sum.Occurrences != 1 {
		t.Fatalf("summary: %+v", sum)
	}

	signals, err := svc.RunSignals(ctx, "run_1")
	if err != nil {
		t.Fatalf("RunSignals: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("run signals: got %d, want 1", len(signals))
	}
	rs := signals[0]
	if rs.SignalType != SignalCapacityAssets {
		t.Errorf("type: got %q", rs.SignalType)
	}
	if rs.CitationURL != "https://example.com/plant?utm_source=x" {
		t.Errorf("citation url: got %q", rs.CitationURL)
	}
	if rs.CitationTitle != "New plant capacity expansion" {
		t.Errorf("citation title: got %q", rs.CitationTitle)
	}
	if rs.CitationDate != "2025-06-10" {
		t.Errorf("citation date: got %q", rs.CitationDate)
	}
}

func TestStaleSignals(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return old }
	if _, err := svc.RecordSignals(ctx, RunContext{RunID: "r1"},
		[]SignalDraft{draft("https://example.com/old", 2)}); err != nil {
		t.Fatal(err)
	}

	recent := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return recent }
	if _, err := svc.RecordSignals(ctx, RunContext{RunID: "r2"},
		[]SignalDraft{draft("https://example.com/new", 2)}); err != nil {
		t.Fatal(err)
	}

	stale, err := svc.StaleSignals(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("StaleSignals: %v", err)
	}
	if len(stale) != 1 || stale[0].IdentityKey != "https://example.com/old" {
		t.Fatalf("stale: got %+v", stale)
	}

	if _, err := svc.StaleSignals(ctx, 0); err == nil {
		t.Fatal("expected error for non-positive window")
	}
}

func TestTagsJSONStable(t *testing.T) {
	a := tagsJSON([]string{"b", "a", "b", " ", "c"})
	b := tagsJSON([]string{"c", "a", "b"})
	if a != b || a != `["a","b","c"]` {
		t.Errorf("got %s and %s", a, b)
	}
	if got := tagsJSON(nil); got != "[]" {
		t.Errorf("empty: got %s", got)
	}
}
