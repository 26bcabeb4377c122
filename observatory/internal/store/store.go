// Package store provides the data access layer for the observatory database.
//
// It holds the four relational tables of the evidence core: sources,
// candidate_items, signals, and signal_occurrences. All writes that can
// collide with a uniqueness invariant use INSERT OR IGNORE, so re-running
// ingestion or signal recording is idempotent by construction.
package store

import "database/sql"

// Store wraps an open database for observatory operations.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
