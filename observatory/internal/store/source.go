package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const sourceColumns = `id, name, kind, location, base_url, selectors_json,
	trust_tier, enabled, notes, created_at, updated_at`

// InsertSource adds a new source to the registry.
func (s *Store) InsertSource(ctx context.Context, src *Source) error {
	now := time.Now().UnixMilli()
	if src.CreatedAt == 0 {
		src.CreatedAt = now
	}
	if src.UpdatedAt == 0 {
		src.UpdatedAt = now
	}
	if src.Kind == "" {
		src.Kind = "feed"
	}
	if src.SelectorsJSON == "" {
		src.SelectorsJSON = "{}"
	}
	if src.TrustTier == 0 {
		src.TrustTier = 2
	}

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO sources (id, name, kind, location, base_url, selectors_json,
		trust_tier, enabled, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.Name, src.Kind, src.Location, src.BaseURL, src.SelectorsJSON,
		src.TrustTier, src.Enabled, src.Notes, src.CreatedAt, src.UpdatedAt,
	)
	return err
}

// GetSource retrieves a source by ID. Returns nil when not found.
func (s *Store) GetSource(ctx context.Context, id string) (*Source, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

// GetSourceByLocation returns the source configured for the given location,
// or nil. Locations are unique across the registry.
func (s *Store) GetSourceByLocation(ctx context.Context, location string) (*Source, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE location = ? LIMIT 1`, location)
	return scanSource(row)
}

// ListSources returns all sources, most trusted first.
func (s *Store) ListSources(ctx context.Context) ([]*Source, error) {
	return s.querySources(ctx,
		`SELECT `+sourceColumns+` FROM sources ORDER BY trust_tier ASC, name ASC`)
}

// ListEnabledSources returns the sources the ingestion engine should read,
// most trusted first. The ordering is part of the engine's determinism: task
// attribution is stable across runs with the same registry.
func (s *Store) ListEnabledSources(ctx context.Context) ([]*Source, error) {
	return s.querySources(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE enabled = 1
		ORDER BY trust_tier ASC, name ASC`)
}

// UpdateSource updates a source's mutable fields.
func (s *Store) UpdateSource(ctx context.Context, src *Source) error {
	src.UpdatedAt = time.Now().UnixMilli()
	_, err := s.DB.ExecContext(ctx,
		`UPDATE sources SET name=?, kind=?, location=?, base_url=?,
		selectors_json=?, trust_tier=?, enabled=?, notes=?, updated_at=?
		WHERE id=?`,
		src.Name, src.Kind, src.Location, src.BaseURL,
		src.SelectorsJSON, src.TrustTier, src.Enabled, src.Notes, src.UpdatedAt,
		src.ID,
	)
	return err
}

// DeleteSource removes a source. Candidate items keep their rows (the FK
// nulls out source_id) so the evidence audit trail survives.
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	return err
}

// CountSources returns the total number of configured sources.
func (s *Store) CountSources(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&count)
	return count, err
}

func (s *Store) querySources(ctx context.Context, query string, args ...any) ([]*Source, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		src, err := scanSourceRows(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func scanSource(row *sql.Row) (*Source, error) {
	var src Source
	var enabled int
	err := row.Scan(
		&src.ID, &src.Name, &src.Kind, &src.Location, &src.BaseURL, &src.SelectorsJSON,
		&src.TrustTier, &enabled, &src.Notes, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Enabled = enabled != 0
	return &src, nil
}

func scanSourceRows(rows *sql.Rows) (*Source, error) {
	var src Source
	var enabled int
	err := rows.Scan(
		&src.ID, &src.Name, &src.Kind, &src.Location, &src.BaseURL, &src.SelectorsJSON,
		&src.TrustTier, &enabled, &src.Notes, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Enabled = enabled != 0
	return &src, nil
}
