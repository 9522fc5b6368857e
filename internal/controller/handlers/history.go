package handlers

import (
	"net/http"

	"farmgate/internal/logger"
	"farmgate/internal/store"
	"farmgate/pkg/api"
)

// ListHistory handles GET /history.
// Entries come back newest first, already capped by the store.
func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context(), h.log).Error("history listing failed", "error", err)
		h.httpError(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.HistoryResponse{Entries: toAPIEntries(entries)})
}

// ReconcileHistory handles POST /history/reconcile.
// It pulls the remote run list and folds its completed runs into the
// persisted history, then returns the post-merge state.
func (h *Handlers) ReconcileHistory(w http.ResponseWriter, r *http.Request) {
	entries, merged, err := h.history.ReconcileRemote(r.Context())
	if err != nil {
		logger.FromContext(r.Context(), h.log).Error("history reconciliation failed", "error", err)
		h.httpError(w, "Failed to reconcile history", http.StatusBadGateway)
		return
	}

	h.respondJson(w, http.StatusOK, api.ReconcileResponse{
		Entries: len(entries),
		Merged:  merged,
	})
}

func toAPIEntries(entries []store.HistoryEntry) []api.HistoryEntry {
	out := make([]api.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, api.HistoryEntry{
			ID:              e.ID,
			Name:            e.Name,
			Status:          e.Status,
			Result:          e.Result,
			CreatedAt:       e.CreatedAt,
			DurationSeconds: e.DurationSeconds,
			Platform:        e.Platform,
			RemoteRun:       e.RemoteRun,
			TestFile:        e.TestFile,
			TestCase:        e.TestCase,
		})
	}
	return out
}
