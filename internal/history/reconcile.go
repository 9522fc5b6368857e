// Package history merges the remote service's run list into the persisted,
// capped, newest-first history log consumed by the dashboard.
package history

import (
	"sort"

	"farmgate/internal/farm"
	"farmgate/internal/store"
)

// EntryFromRun converts a completed remote run into a history entry.
// Duration is only computed when both start and stop timestamps exist.
func EntryFromRun(run farm.Run) store.HistoryEntry {
	entry := store.HistoryEntry{
		ID:        run.Handle,
		Name:      run.Name,
		Status:    run.Status,
		Result:    run.Result,
		CreatedAt: run.CreatedAt,
		Platform:  run.Platform,
		RemoteRun: true,
	}
	if run.StartedAt != nil && run.StoppedAt != nil {
		seconds := int64(run.StoppedAt.Sub(*run.StartedAt).Seconds())
		entry.DurationSeconds = &seconds
	}
	return entry
}

// Reconcile merges completed remote runs into the existing history.
// Matching entries (by run identity) keep their caller-supplied fields,
// such as display name and selected-test metadata, while status, result
// and duration are overwritten from the remote record. New runs are inserted
// at the head; the result is re-sorted newest-first and truncated to the
// cap. The inputs are not mutated.
func Reconcile(existing []store.HistoryEntry, runs []farm.Run) ([]store.HistoryEntry, int) {
	entries := make([]store.HistoryEntry, len(existing))
	copy(entries, existing)

	merged := 0
	for _, run := range runs {
		if !run.Completed() {
			continue
		}
		merged++

		incoming := EntryFromRun(run)
		if i := indexOf(entries, incoming.ID); i >= 0 {
			entries[i].Status = incoming.Status
			entries[i].Result = incoming.Result
			entries[i].DurationSeconds = incoming.DurationSeconds
			continue
		}
		entries = append([]store.HistoryEntry{incoming}, entries...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	if len(entries) > store.MaxHistoryEntries {
		entries = entries[:store.MaxHistoryEntries]
	}
	return entries, merged
}

func indexOf(entries []store.HistoryEntry, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}
