package store

import (
	"context"
	"database/sql"
	"fmt"
)

const signalColumns = `id, identity_key, canonical_url, title, summary,
	signal_type, entities_json, regions_json, value_chain_json, confidence,
	first_seen_at, last_seen_at`

// GetSignalByIdentity returns the live signal for an identity key, or nil.
func (s *Store) GetSignalByIdentity(ctx context.Context, identityKey string) (*Signal, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE identity_key = ?`, identityKey)
	return scanSignal(row)
}

// InsertSignal inserts a new signal. A collision on identity_key is reported
// as inserted=false: another writer observed the same identity first and the
// caller should re-read and merge instead.
func (s *Store) InsertSignal(ctx context.Context, sig *Signal) (inserted bool, err error) {
	res, err := s.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO signals (id, identity_key, canonical_url, title,
		summary, signal_type, entities_json, regions_json, value_chain_json,
		confidence, first_seen_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, sig.IdentityKey, sig.CanonicalURL, sig.Title, sig.Summary,
		sig.SignalType, sig.EntitiesJSON, sig.RegionsJSON, sig.ValueChainJSON,
		sig.Confidence, sig.FirstSeenAt, sig.LastSeenAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert signal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MergeSignal applies a recurrence to an existing signal: last_seen advances,
// confidence only ever rises, and tag sets are replaced with the pre-merged
// unions computed by the registry. first_seen and identity are untouched.
func (s *Store) MergeSignal(ctx context.Context, sig *Signal) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE signals SET
		summary = ?, signal_type = ?, entities_json = ?, regions_json = ?,
		value_chain_json = ?,
		confidence = MAX(confidence, ?),
		last_seen_at = MAX(last_seen_at, ?)
		WHERE id = ?`,
		sig.Summary, sig.SignalType, sig.EntitiesJSON, sig.RegionsJSON,
		sig.ValueChainJSON, sig.Confidence, sig.LastSeenAt, sig.ID,
	)
	if err != nil {
		return fmt.Errorf("merge signal: %w", err)
	}
	return nil
}

// ListStaleSignals returns signals whose last occurrence predates the cutoff
// (Unix milliseconds). Staleness is a reporting policy: stale signals are
// never deleted.
func (s *Store) ListStaleSignals(ctx context.Context, cutoff int64) ([]*Signal, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+signalColumns+` FROM signals
		WHERE last_seen_at < ? ORDER BY last_seen_at ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*Signal
	for rows.Next() {
		var sig Signal
		if err := scanSignalFields(rows.Scan, &sig); err != nil {
			return nil, err
		}
		signals = append(signals, &sig)
	}
	return signals, rows.Err()
}

// CountSignals returns the total number of signals.
func (s *Store) CountSignals(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM signals`).Scan(&count)
	return count, err
}

func scanSignal(row *sql.Row) (*Signal, error) {
	var sig Signal
	err := scanSignalFields(row.Scan, &sig)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &sig, nil
}

func scanSignalFields(scan func(...any) error, sig *Signal) error {
	err := scan(
		&sig.ID, &sig.IdentityKey, &sig.CanonicalURL, &sig.Title, &sig.Summary,
		&sig.SignalType, &sig.EntitiesJSON, &sig.RegionsJSON, &sig.ValueChainJSON,
		&sig.Confidence, &sig.FirstSeenAt, &sig.LastSeenAt,
	)
	if err == sql.ErrNoRows {
		return err
	}
	if err != nil {
		return fmt.Errorf("scan signal: %w", err)
	}
	return nil
}
