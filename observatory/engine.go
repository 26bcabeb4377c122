package observatory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/stefanhermes-code/Observatory/observatory/internal/connector"
	"github.com/stefanhermes-code/Observatory/observatory/internal/store"
	"github.com/stefanhermes-code/Observatory/urlkit"
)

// collectTask is one unit of concurrent collection work: either a configured
// source or a planned search query.
type collectTask struct {
	source *store.Source // nil for query tasks
	query  PlannedQuery
}

func (t *collectTask) label() string {
	if t.source != nil {
		return "source " + t.source.Name
	}
	return "query " + t.query.ID
}

type taskResult struct {
	items []connector.Item
	err   error
}

// candidate is one deduplicated item plus its attribution, before
// persistence.
type candidate struct {
	item      connector.Item
	canonical string
	sourceID  *string
	query     PlannedQuery
	status    urlkit.Status
	httpCode  *int
}

// RunIngestion executes the evidence phase of one run: collect from enabled
// sources and planned search queries concurrently, canonicalize, dedup,
// validate, and persist candidate evidence items.
//
// The whole phase is bounded by the configured run deadline; expiry cancels
// in-flight work and the run proceeds with what has been gathered, reported
// through EvidenceSummary.Partial. Re-running ingestion for the same run id is safe:
// persistence is idempotent on (run, canonical URL, title).
func (s *Service) RunIngestion(ctx context.Context, run RunContext) (*EvidenceSummary, error) {
	if strings.TrimSpace(run.RunID) == "" {
		return nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}

	start := s.now()
	logger := s.logger.With("run_id", run.RunID)

	runCtx, cancel := context.WithTimeout(ctx, s.config.Engine.RunDeadline)
	defer cancel()

	sources, err := s.store.ListEnabledSources(runCtx)
	if err != nil {
		return nil, fmt.Errorf("observatory: load sources: %w", err)
	}

	// Build the task list in a fixed order: sources by trust tier and name
	// (the store's listing order), then planned queries. Aggregation walks
	// the same order, so the persisted set does not depend on completion
	// order among concurrent fetches.
	var tasks []collectTask
	for _, src := range sources {
		if src.Kind == "search" {
			// Search-kind sources configure the search layer, not a connector.
			continue
		}
		tasks = append(tasks, collectTask{source: src})
	}
	if s.provider != nil {
		for _, q := range BuildQueryPlan(run, s.taxonomy, s.config.Engine.MaxQueries) {
			tasks = append(tasks, collectTask{query: q})
		}
	}

	results := s.collect(runCtx, run, tasks)
	partial := errors.Is(runCtx.Err(), context.DeadlineExceeded)

	summary := &EvidenceSummary{
		RunID:            run.RunID,
		PerSource:        make(map[string]int),
		PerQuery:         make(map[string]int),
		ValidationCounts: make(map[string]int),
		Partial:          partial,
	}

	// Aggregate in task order, then dedup on (canonical URL, title). The
	// same canonical URL under distinct titles is two stories on one page;
	// both are kept.
	seen := make(map[string]bool)
	var unique []*candidate
	for i, task := range tasks {
		res := results[i]
		if res.err != nil {
			logger.Warn("collection task failed", "task", task.label(), "error", res.err)
			if task.source != nil {
				summary.PerSource[task.source.Name] = 0
				summary.FailedSources = append(summary.FailedSources, task.source.Name)
			} else {
				summary.PerQuery[task.query.ID] = 0
				summary.FailedQueries = append(summary.FailedQueries, task.query.ID)
			}
			continue
		}
		if task.source != nil {
			summary.PerSource[task.source.Name] += len(res.items)
			summary.FromSources += len(res.items)
		} else {
			summary.PerQuery[task.query.ID] += len(res.items)
			summary.FromSearch += len(res.items)
		}

		for _, item := range res.items {
			item.URL = strings.TrimSpace(item.URL)
			canonical := urlkit.Canonicalize(item.URL)
			if !isHTTPURL(canonical) {
				continue
			}
			item.Title = connector.CleanTitle(item.Title)

			key := canonical + "\x00" + item.Title
			if seen[key] {
				summary.Duplicates++
				continue
			}
			seen[key] = true

			c := &candidate{item: item, canonical: canonical, query: task.query, status: urlkit.NotChecked}
			if task.source != nil {
				id := task.source.ID
				c.sourceID = &id
			}
			unique = append(unique, c)
		}
	}

	s.validate(runCtx, unique)

	// Persist. Insert conflicts from a previous invocation of the same run
	// count as duplicates, never as errors. Uses the caller's context, not
	// the run deadline: evidence already gathered is always written out.
	retrievedAt := s.now().UnixMilli()
	for _, c := range unique {
		rec := &store.CandidateItem{
			ID:               "cand_" + s.newID(),
			RunID:            run.RunID,
			WorkspaceID:      run.WorkspaceID,
			SpecificationID:  run.SpecificationID,
			SourceID:         c.sourceID,
			SourceName:       c.item.SourceName,
			URL:              c.item.URL,
			CanonicalURL:     c.canonical,
			Title:            c.item.Title,
			Snippet:          c.item.Snippet,
			PublishedAt:      c.item.PublishedAt,
			QueryID:          c.query.ID,
			QueryText:        c.query.Text,
			Intent:           c.query.Intent,
			ValidationStatus: string(c.status),
			HTTPStatus:       c.httpCode,
			RetrievedAt:      retrievedAt,
		}
		if rec.SourceName == "" {
			rec.SourceName = "unknown"
		}
		inserted, err := s.store.InsertCandidate(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("observatory: persist candidate: %w", err)
		}
		if inserted {
			summary.Kept++
			summary.ValidationCounts[rec.ValidationStatus]++
		} else {
			summary.Duplicates++
		}
	}

	sort.Strings(summary.FailedSources)
	sort.Strings(summary.FailedQueries)
	summary.Elapsed = s.now().Sub(start)

	logger.Info("ingestion complete",
		"from_sources", summary.FromSources, "from_search", summary.FromSearch,
		"kept", summary.Kept, "duplicates", summary.Duplicates,
		"failed_sources", len(summary.FailedSources), "partial", summary.Partial,
		"elapsed_ms", summary.Elapsed.Milliseconds())
	return summary, nil
}

// collect runs all tasks concurrently under a bounded semaphore, each with
// its own timeout. Results are indexed like tasks.
func (s *Service) collect(ctx context.Context, run RunContext, tasks []collectTask) []taskResult {
	results := make([]taskResult, len(tasks))
	sem := make(chan struct{}, s.config.Engine.MaxConcurrent)
	var wg sync.WaitGroup

	for i := range tasks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = taskResult{err: ctx.Err()}
				return
			}

			taskCtx, cancel := context.WithTimeout(ctx, s.config.Engine.TaskTimeout)
			defer cancel()
			results[i] = s.runTask(taskCtx, run, &tasks[i])
		}(i)
	}
	wg.Wait()
	return results
}

func (s *Service) runTask(ctx context.Context, run RunContext, task *collectTask) taskResult {
	if task.source != nil {
		conn, err := connector.ForSource(task.source, s.fetcher, run.LookbackStart)
		if err != nil {
			return taskResult{err: err}
		}
		items, err := conn.Collect(ctx)
		if err != nil {
			return taskResult{err: err}
		}
		return taskResult{items: items}
	}

	hits, err := s.provider.Search(ctx, task.query.Text, s.config.Engine.ResultsPerQuery)
	if err != nil {
		return taskResult{err: err}
	}
	items := make([]connector.Item, 0, len(hits))
	for _, h := range hits {
		items = append(items, connector.Item{
			URL:         h.URL,
			Title:       h.Title,
			Snippet:     connector.CleanSnippet(h.Snippet),
			PublishedAt: h.PublishedAt,
			SourceName:  "web_search",
		})
	}
	return taskResult{items: items}
}

// validate runs live-URL checks over the unique candidates concurrently.
// Checks never error; a failed check degrades to the error_other class, and
// candidates cut off by the run deadline stay not_checked.
func (s *Service) validate(ctx context.Context, unique []*candidate) {
	if s.config.Engine.SkipValidation {
		return
	}

	sem := make(chan struct{}, s.config.Engine.MaxConcurrent)
	var wg sync.WaitGroup
	for _, c := range unique {
		wg.Add(1)
		go func(c *candidate) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			status, code := s.validator.Check(ctx, c.item.URL)
			c.status = status
			if code != 0 {
				c.httpCode = &code
			}
		}(c)
	}
	wg.Wait()
}

// RunCandidates lists the persisted candidate evidence items of a run.
func (s *Service) RunCandidates(ctx context.Context, runID string) ([]*CandidateItem, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, fmt.Errorf("%w: run id is required", ErrInvalidInput)
	}
	return s.store.ListRunCandidates(ctx, runID)
}

func isHTTPURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}
