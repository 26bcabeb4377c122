package store

import "database/sql"

// Schema is the complete observatory schema. Uniqueness invariants live in
// the schema, not in application locks: concurrent writers racing on the
// same logical row resolve through INSERT OR IGNORE.
const Schema = `
-- Configured external origins (global registry, admin-managed)
CREATE TABLE IF NOT EXISTS sources (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    kind            TEXT NOT NULL DEFAULT 'feed',
    location        TEXT NOT NULL,
    base_url        TEXT NOT NULL DEFAULT '',
    selectors_json  TEXT NOT NULL DEFAULT '{}',
    trust_tier      INTEGER NOT NULL DEFAULT 2,
    enabled         INTEGER NOT NULL DEFAULT 1,
    notes           TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL,
    updated_at      INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sources_location ON sources(location);
CREATE INDEX IF NOT EXISTS idx_sources_enabled ON sources(enabled);

-- Candidate evidence items, scoped to one generation run (append-only)
CREATE TABLE IF NOT EXISTS candidate_items (
    id                TEXT PRIMARY KEY,
    run_id            TEXT NOT NULL,
    workspace_id      TEXT NOT NULL DEFAULT '',
    specification_id  TEXT NOT NULL DEFAULT '',
    source_id         TEXT REFERENCES sources(id) ON DELETE SET NULL,
    source_name       TEXT NOT NULL DEFAULT '',
    url               TEXT NOT NULL,
    canonical_url     TEXT NOT NULL,
    title             TEXT NOT NULL DEFAULT '',
    snippet           TEXT NOT NULL DEFAULT '',
    published_at      TEXT NOT NULL DEFAULT '',
    query_id          TEXT NOT NULL DEFAULT '',
    query_text        TEXT NOT NULL DEFAULT '',
    intent            TEXT NOT NULL DEFAULT '',
    validation_status TEXT NOT NULL DEFAULT 'not_checked',
    http_status       INTEGER,
    retrieved_at      INTEGER NOT NULL
);
-- Same canonical URL may appear once per distinct title within a run,
-- never as an exact duplicate.
CREATE UNIQUE INDEX IF NOT EXISTS idx_candidate_run_url_title
    ON candidate_items(run_id, canonical_url, title);
CREATE INDEX IF NOT EXISTS idx_candidate_run ON candidate_items(run_id);

-- Cross-run signals, merged on identity key
CREATE TABLE IF NOT EXISTS signals (
    id               TEXT PRIMARY KEY,
    identity_key     TEXT NOT NULL,
    canonical_url    TEXT NOT NULL DEFAULT '',
    title            TEXT NOT NULL,
    summary          TEXT NOT NULL DEFAULT '',
    signal_type      TEXT NOT NULL DEFAULT 'other',
    entities_json    TEXT NOT NULL DEFAULT '[]',
    regions_json     TEXT NOT NULL DEFAULT '[]',
    value_chain_json TEXT NOT NULL DEFAULT '[]',
    confidence       INTEGER NOT NULL DEFAULT 3,
    first_seen_at    INTEGER NOT NULL,
    last_seen_at     INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_signals_identity ON signals(identity_key);
CREATE INDEX IF NOT EXISTS idx_signals_last_seen ON signals(last_seen_at DESC);

-- Occurrences: one row per (signal, run), append-only
CREATE TABLE IF NOT EXISTS signal_occurrences (
    id                TEXT PRIMARY KEY,
    signal_id         TEXT NOT NULL REFERENCES signals(id) ON DELETE CASCADE,
    run_id            TEXT NOT NULL,
    workspace_id      TEXT NOT NULL DEFAULT '',
    specification_id  TEXT NOT NULL DEFAULT '',
    candidate_item_id TEXT NOT NULL DEFAULT '',
    created_at        INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_occurrence_signal_run
    ON signal_occurrences(signal_id, run_id);
CREATE INDEX IF NOT EXISTS idx_occurrence_run ON signal_occurrences(run_id);
`

// ApplySchema creates all tables and indexes on the given database.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
