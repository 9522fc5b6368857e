package store

import "time"

// MaxHistoryEntries caps the persisted history log.
const MaxHistoryEntries = 100

// HistoryEntry is one persisted run in the dashboard history log.
// Status, Result and DurationSeconds are remote-authoritative and get
// overwritten on reconcile; Name, TestFile and TestCase are caller-supplied
// and preserved.
type HistoryEntry struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	Result          string    `json:"result,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	DurationSeconds *int64    `json:"duration_seconds,omitempty"`
	Platform        string    `json:"platform,omitempty"`
	RemoteRun       bool      `json:"remote_run"`
	TestFile        string    `json:"test_file,omitempty"`
	TestCase        string    `json:"test_case,omitempty"`
}
