package store

// Source is a configured external origin of candidate evidence.
// Sources are global: they belong to no workspace and are read-only to the
// ingestion engine (administration happens in a separate app).
type Source struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Kind          string `json:"kind"` // feed | sitemap | listing | search
	Location      string `json:"location"`
	BaseURL       string `json:"base_url"`
	SelectorsJSON string `json:"selectors_json"`
	TrustTier     int    `json:"trust_tier"` // 1 (highest) .. 4
	Enabled       bool   `json:"enabled"`
	Notes         string `json:"notes"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

// CandidateItem is one piece of evidence discovered during a single run.
// Rows are immutable once written; a run never edits a prior run's items.
type CandidateItem struct {
	ID              string  `json:"id"`
	RunID           string  `json:"run_id"`
	WorkspaceID     string  `json:"workspace_id"`
	SpecificationID string  `json:"specification_id"`
	SourceID        *string `json:"source_id,omitempty"` // nil when found via search
	SourceName      string  `json:"source_name"`
	URL             string  `json:"url"`
	CanonicalURL    string  `json:"canonical_url"`
	Title           string  `json:"title"`
	Snippet         string  `json:"snippet"`
	PublishedAt     string  `json:"published_at"` // YYYY-MM-DD, "" when unknown
	QueryID         string  `json:"query_id"`
	QueryText       string  `json:"query_text"`
	Intent          string  `json:"intent"`
	ValidationStatus string `json:"validation_status"`
	HTTPStatus      *int    `json:"http_status,omitempty"`
	RetrievedAt     int64   `json:"retrieved_at"`
}

// Signal is a normalized, cross-run entity representing a recurring
// real-world event or fact. At most one live Signal exists per identity key.
type Signal struct {
	ID             string `json:"id"`
	IdentityKey    string `json:"identity_key"`
	CanonicalURL   string `json:"canonical_url"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	SignalType     string `json:"signal_type"`
	EntitiesJSON   string `json:"entities_json"`
	RegionsJSON    string `json:"regions_json"`
	ValueChainJSON string `json:"value_chain_json"`
	Confidence     int    `json:"confidence"` // 1..5, never decreases across merges
	FirstSeenAt    int64  `json:"first_seen_at"`
	LastSeenAt     int64  `json:"last_seen_at"`
}

// Occurrence links one Signal to one run. Append-only; exactly one row per
// (signal, run) pair.
type Occurrence struct {
	ID              string `json:"id"`
	SignalID        string `json:"signal_id"`
	RunID           string `json:"run_id"`
	WorkspaceID     string `json:"workspace_id"`
	SpecificationID string `json:"specification_id"`
	CandidateItemID string `json:"candidate_item_id"` // "" when no specific item
	CreatedAt       int64  `json:"created_at"`
}

// RunSignal is a Signal observed in a given run, joined with the citation
// fields of the candidate item that produced its occurrence. Consumed by the
// report-writing layer.
type RunSignal struct {
	Signal
	OccurredAt    int64  `json:"occurred_at"`
	CitationURL   string `json:"citation_url"`
	CitationTitle string `json:"citation_title"`
	CitationDate  string `json:"citation_date"`
}
