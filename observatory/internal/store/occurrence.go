package store

import (
	"context"
	"fmt"
	"time"
)

// InsertOccurrence records a (signal, run) observation. Exactly one row ever
// exists per pair: a second extraction mapping to the same signal within the
// run is reported as inserted=false, never as an error. First wins.
func (s *Store) InsertOccurrence(ctx context.Context, o *Occurrence) (inserted bool, err error) {
	if o.CreatedAt == 0 {
		o.CreatedAt = time.Now().UnixMilli()
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO signal_occurrences (id, signal_id, run_id,
		workspace_id, specification_id, candidate_item_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.SignalID, o.RunID, o.WorkspaceID, o.SpecificationID,
		o.CandidateItemID, o.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert occurrence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountRunOccurrences returns the number of occurrences recorded for a run.
func (s *Store) CountRunOccurrences(ctx context.Context, runID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM signal_occurrences WHERE run_id = ?`, runID).Scan(&count)
	return count, err
}

// CountSignalOccurrences returns the number of runs a signal appeared in.
func (s *Store) CountSignalOccurrences(ctx context.Context, signalID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM signal_occurrences WHERE signal_id = ?`, signalID).Scan(&count)
	return count, err
}

// ListRunSignals returns the signals observed in a run together with the
// citation fields of the candidate item behind each occurrence. This is the
// hand-off shape for the report-writing layer.
func (s *Store) ListRunSignals(ctx context.Context, runID string) ([]*RunSignal, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT s.id, s.identity_key, s.canonical_url, s.title, s.summary,
		s.signal_type, s.entities_json, s.regions_json, s.value_chain_json,
		s.confidence, s.first_seen_at, s.last_seen_at,
		o.created_at,
		COALESCE(c.url, ''), COALESCE(c.title, ''), COALESCE(c.published_at, '')
		FROM signal_occurrences o
		JOIN signals s ON s.id = o.signal_id
		LEFT JOIN candidate_items c ON c.id = o.candidate_item_id
		WHERE o.run_id = ?
		ORDER BY s.confidence DESC, s.title ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*RunSignal
	for rows.Next() {
		var rs RunSignal
		if err := rows.Scan(
			&rs.ID, &rs.IdentityKey, &rs.CanonicalURL, &rs.Title, &rs.Summary,
			&rs.SignalType, &rs.EntitiesJSON, &rs.RegionsJSON, &rs.ValueChainJSON,
			&rs.Confidence, &rs.FirstSeenAt, &rs.LastSeenAt,
			&rs.OccurredAt,
			&rs.CitationURL, &rs.CitationTitle, &rs.CitationDate,
		); err != nil {
			return nil, fmt.Errorf("scan run signal: %w", err)
		}
		out = append(out, &rs)
	}
	return out, rows.Err()
}
