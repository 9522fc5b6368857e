package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmgate/internal/farm"
	"farmgate/internal/store"
	"farmgate/pkg/api"
)

func TestListHistory(t *testing.T) {
	duration := int64(420)
	hist := &mockHistory{entries: []store.HistoryEntry{
		{
			ID:              "run-2",
			Name:            "nightly",
			Status:          farm.RunStatusCompleted,
			Result:          farm.RunResultPassed,
			CreatedAt:       time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
			DurationSeconds: &duration,
			Platform:        "android",
			RemoteRun:       true,
		},
		{
			ID:        "run-1",
			Name:      "smoke",
			Status:    farm.RunStatusCompleted,
			Result:    farm.RunResultFailed,
			CreatedAt: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
			RemoteRun: true,
			TestFile:  "test/e2e/login.e2e.ts",
		},
	}}
	h := newTestHandlers(nil, nil, hist, nil)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rec := httptest.NewRecorder()
	h.ListHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp api.HistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(resp.Entries))
	}
	if resp.Entries[0].ID != "run-2" || resp.Entries[1].ID != "run-1" {
		t.Errorf("order not preserved: %+v", resp.Entries)
	}
	if resp.Entries[0].DurationSeconds == nil || *resp.Entries[0].DurationSeconds != 420 {
		t.Errorf("duration lost in translation: %+v", resp.Entries[0])
	}
	if resp.Entries[1].TestFile != "test/e2e/login.e2e.ts" {
		t.Errorf("test file lost in translation: %+v", resp.Entries[1])
	}
}

func TestListHistoryStoreFailure(t *testing.T) {
	hist := &mockHistory{listErr: errors.New("disk gone")}
	h := newTestHandlers(nil, nil, hist, nil)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rec := httptest.NewRecorder()
	h.ListHistory(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestReconcileHistory(t *testing.T) {
	hist := &mockHistory{
		entries: []store.HistoryEntry{{ID: "run-1"}, {ID: "run-2"}, {ID: "run-3"}},
		merged:  2,
	}
	h := newTestHandlers(nil, nil, hist, nil)

	req := httptest.NewRequest(http.MethodPost, "/history/reconcile", nil)
	rec := httptest.NewRecorder()
	h.ReconcileHistory(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp api.ReconcileResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Entries != 3 || resp.Merged != 2 {
		t.Errorf("got %+v, want entries=3 merged=2", resp)
	}
}

func TestReconcileHistoryRemoteFailure(t *testing.T) {
	hist := &mockHistory{reconcileErr: errors.New("farm unavailable")}
	h := newTestHandlers(nil, nil, hist, nil)

	req := httptest.NewRequest(http.MethodPost, "/history/reconcile", nil)
	rec := httptest.NewRecorder()
	h.ReconcileHistory(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
