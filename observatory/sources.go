package observatory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stefanhermes-code/Observatory/observatory/internal/store"
)

// Source admin surface. The ingestion engine itself treats sources as
// read-only; this is the stand-in for the excluded administration app.

const (
	maxSourceNameLen = 512
	maxLocationLen   = 4096
	maxSelectorsLen  = 8192
)

// allowedSourceKinds is the closed set of valid source kinds.
var allowedSourceKinds = map[string]bool{
	"feed":    true,
	"sitemap": true,
	"listing": true,
	"search":  true,
}

// validateSourceInput validates a source's mutable fields before insert or
// update.
func validateSourceInput(src *Source) error {
	if strings.TrimSpace(src.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(src.Name) > maxSourceNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxSourceNameLen)
	}
	if strings.TrimSpace(src.Location) == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if len(src.Location) > maxLocationLen {
		return fmt.Errorf("%w: location exceeds %d characters", ErrInvalidInput, maxLocationLen)
	}
	if src.Kind != "" && !allowedSourceKinds[src.Kind] {
		return fmt.Errorf("%w: unknown source kind %q", ErrInvalidInput, src.Kind)
	}
	if src.TrustTier < 0 || src.TrustTier > 4 {
		return fmt.Errorf("%w: trust_tier must be between 1 and 4", ErrInvalidInput)
	}
	if src.SelectorsJSON != "" && src.SelectorsJSON != "{}" {
		if len(src.SelectorsJSON) > maxSelectorsLen {
			return fmt.Errorf("%w: selectors_json exceeds %d bytes", ErrInvalidInput, maxSelectorsLen)
		}
		if !json.Valid([]byte(src.SelectorsJSON)) {
			return fmt.Errorf("%w: selectors_json is not valid JSON", ErrInvalidInput)
		}
	}
	return nil
}

// AddSource registers a new source and returns its id.
func (s *Service) AddSource(ctx context.Context, src *Source) (string, error) {
	if err := validateSourceInput(src); err != nil {
		return "", err
	}
	existing, err := s.store.GetSourceByLocation(ctx, src.Location)
	if err != nil {
		return "", fmt.Errorf("observatory: add source: %w", err)
	}
	if existing != nil {
		return "", fmt.Errorf("%w: %s", ErrDuplicateSource, src.Location)
	}

	if src.ID == "" {
		src.ID = "src_" + s.newID()
	}
	if err := s.store.InsertSource(ctx, src); err != nil {
		return "", fmt.Errorf("observatory: add source: %w", err)
	}
	s.logger.Info("source added", "source_id", src.ID, "kind", src.Kind, "name", src.Name)
	return src.ID, nil
}

// UpdateSource updates a source's mutable fields.
func (s *Service) UpdateSource(ctx context.Context, src *Source) error {
	if src.ID == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidInput)
	}
	if err := validateSourceInput(src); err != nil {
		return err
	}
	existing, err := s.store.GetSource(ctx, src.ID)
	if err != nil {
		return fmt.Errorf("observatory: update source: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("%w: source %s", ErrNotFound, src.ID)
	}
	// Tier 0 means unset; an update takes the same default as insert so the
	// stored tier stays in 1..4.
	if src.TrustTier == 0 {
		src.TrustTier = 2
	}
	if err := s.store.UpdateSource(ctx, src); err != nil {
		return fmt.Errorf("observatory: update source: %w", err)
	}
	return nil
}

// RemoveSource deletes a source. Candidate items keep their attribution with
// a nulled source reference.
func (s *Service) RemoveSource(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidInput)
	}
	if err := s.store.DeleteSource(ctx, id); err != nil {
		return fmt.Errorf("observatory: remove source: %w", err)
	}
	return nil
}

// Sources lists all configured sources, most trusted first.
func (s *Service) Sources(ctx context.Context) ([]*Source, error) {
	return s.store.ListSources(ctx)
}

// seedFile is the YAML shape consumed by SeedSources.
type seedFile struct {
	Sources []seedSource `yaml:"sources"`
}

type seedSource struct {
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind"`
	Location  string         `yaml:"location"`
	BaseURL   string         `yaml:"base_url"`
	Selectors map[string]any `yaml:"selectors"`
	TrustTier int            `yaml:"trust_tier"`
	Enabled   *bool          `yaml:"enabled"`
	Notes     string         `yaml:"notes"`
}

// SeedSources loads sources from a YAML file, skipping locations that are
// already registered. Returns the number of sources added.
func (s *Service) SeedSources(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("observatory: seed sources: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("observatory: seed sources: %w", err)
	}

	added := 0
	for i, entry := range file.Sources {
		selectors := "{}"
		if len(entry.Selectors) > 0 {
			b, err := json.Marshal(entry.Selectors)
			if err != nil {
				return added, fmt.Errorf("observatory: seed sources: entry %d selectors: %w", i, err)
			}
			selectors = string(b)
		}
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		src := &store.Source{
			Name:          entry.Name,
			Kind:          entry.Kind,
			Location:      entry.Location,
			BaseURL:       entry.BaseURL,
			SelectorsJSON: selectors,
			TrustTier:     entry.TrustTier,
			Enabled:       enabled,
			Notes:         entry.Notes,
		}
		_, err := s.AddSource(ctx, src)
		switch {
		case err == nil:
			added++
		case errors.Is(err, ErrDuplicateSource):
			s.logger.Debug("seed: source already registered", "location", entry.Location)
		default:
			return added, fmt.Errorf("observatory: seed sources: entry %d: %w", i, err)
		}
	}
	return added, nil
}

// Stats reports registry-wide counts for the CLI.
type Stats struct {
	Sources int `json:"sources"`
	Signals int `json:"signals"`
}

// Stats returns registry-wide counts.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	sources, err := s.store.CountSources(ctx)
	if err != nil {
		return nil, err
	}
	signals, err := s.store.CountSignals(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Sources: sources, Signals: signals}, nil
}
