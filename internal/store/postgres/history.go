package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"farmgate/internal/store"
)

const historyColumns = `id, name, status, result, created_at, duration_seconds, platform, remote_run, test_file, test_case`

// Load implements store.HistoryStore. Entries come back newest-first,
// capped at the history limit.
func (s *Store) Load(ctx context.Context) ([]store.HistoryEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM history_entries
		ORDER BY created_at DESC
		LIMIT $1
	`, historyColumns)

	rows, err := s.db.QueryContext(ctx, query, store.MaxHistoryEntries)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	entries := []store.HistoryEntry{}
	for rows.Next() {
		var e store.HistoryEntry
		var duration sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Name, &e.Status, &e.Result, &e.CreatedAt,
			&duration, &e.Platform, &e.RemoteRun, &e.TestFile, &e.TestCase); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if duration.Valid {
			d := duration.Int64
			e.DurationSeconds = &d
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history entries: %w", err)
	}
	return entries, nil
}

// Replace implements store.HistoryStore: the whole log is swapped inside
// one transaction.
func (s *Store) Replace(ctx context.Context, entries []store.HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history_entries`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO history_entries (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, historyColumns)

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, insert, e.ID, e.Name, e.Status, e.Result,
			e.CreatedAt, nullableDuration(e), e.Platform, e.RemoteRun, e.TestFile, e.TestCase); err != nil {
			return fmt.Errorf("insert history entry %s: %w", e.ID, err)
		}
	}

	return tx.Commit()
}

// MergeCompleted implements store.HistoryMerger. Each entry is upserted by
// run identity: remote-authoritative fields (status, result, duration) are
// overwritten while caller-supplied fields (name, test file, test case)
// survive from the existing row. The log is then trimmed to the cap.
func (s *Store) MergeCompleted(ctx context.Context, entries []store.HistoryEntry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback()

	upsert := fmt.Sprintf(`
		INSERT INTO history_entries (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			duration_seconds = EXCLUDED.duration_seconds
	`, historyColumns)

	merged := 0
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, upsert, e.ID, e.Name, e.Status, e.Result,
			e.CreatedAt, nullableDuration(e), e.Platform, e.RemoteRun, e.TestFile, e.TestCase); err != nil {
			return 0, fmt.Errorf("upsert history entry %s: %w", e.ID, err)
		}
		merged++
	}

	trim := `
		DELETE FROM history_entries
		WHERE id NOT IN (
			SELECT id FROM history_entries
			ORDER BY created_at DESC
			LIMIT $1
		)
	`
	if _, err := tx.ExecContext(ctx, trim, store.MaxHistoryEntries); err != nil {
		return 0, fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit merge: %w", err)
	}
	return merged, nil
}

func nullableDuration(e store.HistoryEntry) any {
	if e.DurationSeconds == nil {
		return nil
	}
	return *e.DurationSeconds
}
