package history

import (
	"context"
	"fmt"
	"log/slog"

	"farmgate/internal/farm"
	"farmgate/internal/observability"
	"farmgate/internal/store"
)

// Service keeps the persisted history in sync with the remote run list.
type Service struct {
	store   store.HistoryStore
	farm    farm.API
	project string
	log     *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a history service for one project. metrics may be nil.
func NewService(s store.HistoryStore, api farm.API, project string, log *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:   s,
		farm:    api,
		project: project,
		log:     log,
		metrics: metrics,
	}
}

// List returns the current persisted history, newest first.
func (s *Service) List(ctx context.Context) ([]store.HistoryEntry, error) {
	return s.store.Load(ctx)
}

// ReconcileRemote fetches the remote run list and merges its completed runs
// into the persisted history. It returns the post-merge history and the
// number of completed runs merged.
func (s *Service) ReconcileRemote(ctx context.Context) ([]store.HistoryEntry, int, error) {
	runs, err := s.farm.ListRuns(ctx, s.project)
	if err != nil {
		return nil, 0, fmt.Errorf("list remote runs: %w", err)
	}

	// Stores with atomic upsert semantics merge server-side.
	if merger, ok := s.store.(store.HistoryMerger); ok {
		completed := make([]store.HistoryEntry, 0, len(runs))
		for _, run := range runs {
			if run.Completed() {
				completed = append(completed, EntryFromRun(run))
			}
		}

		merged, err := merger.MergeCompleted(ctx, completed)
		if err != nil {
			return nil, 0, fmt.Errorf("merge history: %w", err)
		}

		entries, err := s.store.Load(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("reload history: %w", err)
		}
		s.observe("merged")
		return entries, merged, nil
	}

	existing, err := s.store.Load(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load history: %w", err)
	}

	entries, merged := Reconcile(existing, runs)

	// The document store replaces the whole log without a conditional
	// put: a reconciliation racing another writer can lose its update.
	s.log.Warn("replacing history document without version check; concurrent reconciliations may lose updates",
		"entries", len(entries))

	if err := s.store.Replace(ctx, entries); err != nil {
		return nil, 0, fmt.Errorf("replace history: %w", err)
	}
	s.observe("replaced")
	return entries, merged, nil
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordReconcile(outcome)
	}
}
