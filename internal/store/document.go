package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// historyKey is the object holding the full history log as one JSON array.
const historyKey = "history/history.json"

// DocumentHistoryStore keeps the history log as a single JSON document in
// an object store. Replace is a whole-document write with no conditional
// put, so concurrent reconciliations can lose updates; the history service
// logs a warning for that case instead of pretending it cannot happen.
type DocumentHistoryStore struct {
	Objects ObjectStore
}

// Load implements HistoryStore. A missing document is an empty history.
func (s *DocumentHistoryStore) Load(ctx context.Context) ([]HistoryEntry, error) {
	data, err := s.Objects.Get(ctx, historyKey)
	if errors.Is(err, ErrNotFound) {
		return []HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history document: %w", err)
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode history document: %w", err)
	}
	return entries, nil
}

// Replace implements HistoryStore as a single document replace.
func (s *DocumentHistoryStore) Replace(ctx context.Context, entries []HistoryEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history document: %w", err)
	}
	if err := s.Objects.Put(ctx, historyKey, data, "application/json"); err != nil {
		return fmt.Errorf("write history document: %w", err)
	}
	return nil
}
