package store

import (
	"context"
	"fmt"
	"time"
)

const candidateColumns = `id, run_id, workspace_id, specification_id, source_id,
	source_name, url, canonical_url, title, snippet, published_at,
	query_id, query_text, intent, validation_status, http_status, retrieved_at`

// InsertCandidate persists a candidate evidence item. The insert is
// idempotent: a collision on (run_id, canonical_url, title) is reported as
// inserted=false, never as an error. Rows are immutable after insert.
func (s *Store) InsertCandidate(ctx context.Context, c *CandidateItem) (inserted bool, err error) {
	if c.RetrievedAt == 0 {
		c.RetrievedAt = time.Now().UnixMilli()
	}
	if c.ValidationStatus == "" {
		c.ValidationStatus = "not_checked"
	}

	res, err := s.DB.ExecContext(ctx,
		`INSERT OR IGNORE INTO candidate_items (id, run_id, workspace_id,
		specification_id, source_id, source_name, url, canonical_url, title,
		snippet, published_at, query_id, query_text, intent,
		validation_status, http_status, retrieved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.RunID, c.WorkspaceID, c.SpecificationID, c.SourceID, c.SourceName,
		c.URL, c.CanonicalURL, c.Title, c.Snippet, c.PublishedAt,
		c.QueryID, c.QueryText, c.Intent, c.ValidationStatus, c.HTTPStatus, c.RetrievedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert candidate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert candidate: rows affected: %w", err)
	}
	return n > 0, nil
}

// ListRunCandidates returns all candidate items of a run in a stable order.
func (s *Store) ListRunCandidates(ctx context.Context, runID string) ([]*CandidateItem, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+candidateColumns+` FROM candidate_items
		WHERE run_id = ? ORDER BY canonical_url ASC, title ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*CandidateItem
	for rows.Next() {
		var c CandidateItem
		if err := rows.Scan(
			&c.ID, &c.RunID, &c.WorkspaceID, &c.SpecificationID, &c.SourceID,
			&c.SourceName, &c.URL, &c.CanonicalURL, &c.Title, &c.Snippet,
			&c.PublishedAt, &c.QueryID, &c.QueryText, &c.Intent,
			&c.ValidationStatus, &c.HTTPStatus, &c.RetrievedAt,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}

// CountRunCandidates returns the number of candidate items in a run.
func (s *Store) CountRunCandidates(ctx context.Context, runID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM candidate_items WHERE run_id = ?`, runID).Scan(&count)
	return count, err
}

// RunValidationCounts returns the number of candidate items per validation
// status class for a run.
func (s *Store) RunValidationCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT validation_status, COUNT(*) FROM candidate_items
		WHERE run_id = ? GROUP BY validation_status`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
