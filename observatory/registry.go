package observatory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stefanhermes-code/Observatory/observatory/internal/store"
)

// RecordSignals merges one run's extracted drafts into the cross-run signal
// registry and records occurrences.
//
// Per draft: a new identity key inserts a signal with first_seen = last_seen
// = now; a known key is a recurrence — last_seen advances, confidence takes
// the max, tag sets take the union. Either way one occurrence links the
// signal to this run; when several drafts in the run share an identity key,
// the first extraction wins the occurrence and later ones only merge.
func (s *Service) RecordSignals(ctx context.Context, run RunContext, drafts []SignalDraft) (*SignalSummary, error) {
	if strings.TrimSpace(run.RunID) == "" {
		return nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}

	logger := s.logger.With("run_id", run.RunID)
	summary := &SignalSummary{RunID: run.RunID, DraftsRecorded: len(drafts)}
	now := s.now().UnixMilli()

	for i := range drafts {
		draft := &drafts[i]
		if draft.IdentityKey == "" || draft.Confidence < 1 {
			return nil, fmt.Errorf("%w: draft %d has no identity key or confidence", ErrInvalidInput, i)
		}

		created, err := s.upsertSignal(ctx, draft, now)
		if err != nil {
			return nil, fmt.Errorf("observatory: record signal: %w", err)
		}
		if created {
			summary.Created++
		} else {
			summary.Recurrences++
		}

		signal, err := s.store.GetSignalByIdentity(ctx, draft.IdentityKey)
		if err != nil {
			return nil, fmt.Errorf("observatory: record signal: %w", err)
		}
		inserted, err := s.store.InsertOccurrence(ctx, &store.Occurrence{
			ID:              "occ_" + s.newID(),
			SignalID:        signal.ID,
			RunID:           run.RunID,
			WorkspaceID:     run.WorkspaceID,
			SpecificationID: run.SpecificationID,
			CandidateItemID: draft.CandidateItemID,
			CreatedAt:       now,
		})
		if err != nil {
			return nil, fmt.Errorf("observatory: record occurrence: %w", err)
		}
		if inserted {
			summary.Occurrences++
		}
	}

	logger.Info("signals recorded",
		"drafts", summary.DraftsRecorded, "created", summary.Created,
		"recurrences", summary.Recurrences, "occurrences", summary.Occurrences)
	return summary, nil
}

// upsertSignal inserts a draft as a new signal or merges it into the
// existing one. Returns whether a new signal was created. A unique-violation
// race on insert is handled by re-reading and merging.
func (s *Service) upsertSignal(ctx context.Context, draft *SignalDraft, now int64) (created bool, err error) {
	existing, err := s.store.GetSignalByIdentity(ctx, draft.IdentityKey)
	if err != nil {
		return false, err
	}

	if existing == nil {
		inserted, err := s.store.InsertSignal(ctx, &store.Signal{
			ID:             "sig_" + s.newID(),
			IdentityKey:    draft.IdentityKey,
			CanonicalURL:   draft.CanonicalURL,
			Title:          draft.Title,
			Summary:        draft.Summary,
			SignalType:     draft.SignalType,
			EntitiesJSON:   tagsJSON(draft.Entities),
			RegionsJSON:    tagsJSON(draft.Regions),
			ValueChainJSON: tagsJSON(draft.ValueChainLinks),
			Confidence:     draft.Confidence,
			FirstSeenAt:    now,
			LastSeenAt:     now,
		})
		if err != nil {
			return false, err
		}
		if inserted {
			return true, nil
		}
		// Lost the insert race: another writer created the signal between
		// our read and write. Fall through to merge.
		existing, err = s.store.GetSignalByIdentity(ctx, draft.IdentityKey)
		if err != nil {
			return false, err
		}
		if existing == nil {
			return false, fmt.Errorf("signal %q vanished after insert conflict", draft.IdentityKey)
		}
	}

	merged := *existing
	merged.SignalType = mergeType(existing.SignalType, draft.SignalType)
	merged.Summary = longerOf(existing.Summary, draft.Summary)
	merged.EntitiesJSON = unionJSON(existing.EntitiesJSON, draft.Entities)
	merged.RegionsJSON = unionJSON(existing.RegionsJSON, draft.Regions)
	merged.ValueChainJSON = unionJSON(existing.ValueChainJSON, draft.ValueChainLinks)
	merged.Confidence = draft.Confidence // store takes MAX against existing
	merged.LastSeenAt = now
	return false, s.store.MergeSignal(ctx, &merged)
}

// RunSignalExtraction loads a run's persisted candidate evidence, extracts
// signal drafts, and records them. The usual follow-up to RunIngestion.
func (s *Service) RunSignalExtraction(ctx context.Context, run RunContext) (*SignalSummary, error) {
	if strings.TrimSpace(run.RunID) == "" {
		return nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	items, err := s.store.ListRunCandidates(ctx, run.RunID)
	if err != nil {
		return nil, fmt.Errorf("observatory: load candidates: %w", err)
	}
	return s.RecordSignals(ctx, run, ExtractDrafts(run, items, s.taxonomy))
}

// RunSignals returns the signals observed in a run with their citation
// fields, ordered by confidence. This is the hand-off to the report-writing
// layer.
func (s *Service) RunSignals(ctx context.Context, runID string) ([]*RunSignal, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	return s.store.ListRunSignals(ctx, runID)
}

// StaleSignals lists signals not observed since the given age. Staleness is
// a reporting policy surface; signals are never deleted.
func (s *Service) StaleSignals(ctx context.Context, olderThan time.Duration) ([]*Signal, error) {
	if olderThan <= 0 {
		return nil, fmt.Errorf("%w: staleness window must be positive", ErrInvalidInput)
	}
	cutoff := s.now().Add(-olderThan).UnixMilli()
	return s.store.ListStaleSignals(ctx, cutoff)
}

// tagsJSON renders a tag set as sorted, deduplicated JSON. Stable across
// insertion orders.
func tagsJSON(tags []string) string {
	return marshalTags(dedupSort(tags))
}

// unionJSON merges an existing JSON tag set with new tags.
func unionJSON(existingJSON string, tags []string) string {
	var existing []string
	if existingJSON != "" {
		// A corrupt stored set degrades to the new tags only.
		_ = json.Unmarshal([]byte(existingJSON), &existing)
	}
	return marshalTags(dedupSort(append(existing, tags...)))
}

func dedupSort(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func marshalTags(tags []string) string {
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// mergeType keeps the existing classification unless it was the untyped
// fallback.
func mergeType(existing, draft string) string {
	if existing == SignalOther && draft != SignalOther {
		return draft
	}
	return existing
}

func longerOf(a, b string) string {
	if len(b) > len(a) {
		return b
	}
	return a
}
