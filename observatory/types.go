package observatory

import (
	"time"

	"github.com/stefanhermes-code/Observatory/observatory/internal/store"
)

// Storage records re-exported for callers; the store package stays internal.
type (
	Source        = store.Source
	CandidateItem = store.CandidateItem
	Signal        = store.Signal
	Occurrence    = store.Occurrence
	RunSignal     = store.RunSignal
)

// TrackedEntity is one organization the run watches, with the alternate
// names it publishes under.
type TrackedEntity struct {
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases" yaml:"aliases"`
}

// RunContext scopes one ingestion run. It is produced by the scheduling
// layer; the engine treats it as read-only.
type RunContext struct {
	RunID           string `json:"run_id"`
	WorkspaceID     string `json:"workspace_id"`
	SpecificationID string `json:"specification_id"`

	// Specification parameters driving the query plan and extraction.
	Regions         []string        `json:"regions"`
	Categories      []string        `json:"categories"`
	ValueChainLinks []string        `json:"value_chain_links"`
	TrackedEntities []TrackedEntity `json:"tracked_entities"`

	// LookbackStart bounds evidence freshness: sitemap entries older than it
	// are skipped and recency contributes to signal confidence. Zero
	// disables both effects.
	LookbackStart time.Time `json:"lookback_start"`
}

// EvidenceSummary reports what one ingestion run collected. Persisted by the
// run-metadata layer for observability.
type EvidenceSummary struct {
	RunID string `json:"run_id"`

	FromSources int `json:"from_sources"` // raw items produced by connectors
	FromSearch  int `json:"from_search"`  // raw hits produced by search queries
	Kept        int `json:"kept"`         // candidate items persisted this call
	Duplicates  int `json:"duplicates"`   // dropped in-run or already persisted

	// PerSource maps source name to its raw item count; failed sources
	// appear with zero and in FailedSources.
	PerSource map[string]int `json:"per_source"`
	// PerQuery maps query id to its raw hit count.
	PerQuery map[string]int `json:"per_query"`
	// ValidationCounts maps validation status to persisted item count.
	ValidationCounts map[string]int `json:"validation_counts"`

	FailedSources []string `json:"failed_sources,omitempty"`
	FailedQueries []string `json:"failed_queries,omitempty"`

	// Partial is set when the run deadline cut ingestion short; collection
	// proceeded with whatever had been gathered. Not an error.
	Partial bool `json:"partial"`

	Elapsed time.Duration `json:"elapsed"`
}

// SignalDraft is the extractor's normalized view of one candidate item,
// before cross-run merge.
type SignalDraft struct {
	IdentityKey     string   `json:"identity_key"`
	CanonicalURL    string   `json:"canonical_url"`
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	SignalType      string   `json:"signal_type"`
	Entities        []string `json:"entities"`
	Regions         []string `json:"regions"`
	ValueChainLinks []string `json:"value_chain_links"`
	Confidence      int      `json:"confidence"` // 1..5
	CandidateItemID string   `json:"candidate_item_id"`
}

// SignalSummary reports what the registry recorded for one run.
type SignalSummary struct {
	RunID          string `json:"run_id"`
	Created        int    `json:"created"`     // new signals
	Recurrences    int    `json:"recurrences"` // merged into existing signals
	Occurrences    int    `json:"occurrences"` // occurrence rows inserted
	DraftsRecorded int    `json:"drafts_recorded"`
}
