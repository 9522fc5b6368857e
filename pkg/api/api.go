// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and Controller.
package api

import "time"

// Test selection modes accepted by the trigger API.
const (
	TestModeFull       = "full"
	TestModeSingleFile = "single_file"
	TestModeSingleCase = "single_case"
)

// Report sources returned by the report endpoint.
const (
	ReportSourceCached    = "cached"
	ReportSourceDirect    = "direct_html"
	ReportSourceExtracted = "extracted_zip"
	ReportSourceManual    = "manual"
)

// StartRunRequest is the request body for triggering a device test run.
type StartRunRequest struct {
	BuildFilePath    string `json:"build_file_path"`
	DevicePoolHandle string `json:"device_pool_handle"`
	ProjectHandle    string `json:"project_handle"`
	Platform         string `json:"platform"` // "android" or "ios"
	TestMode         string `json:"test_mode"`
	SelectedTest     string `json:"selected_test,omitempty"`
	SelectedTestCase string `json:"selected_test_case,omitempty"`
	DisplayName      string `json:"display_name,omitempty"`
}

// StartRunResponse is the response body after a run was scheduled.
type StartRunResponse struct {
	RunHandle string    `json:"run_handle"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// RunStatusResponse is the response body for run status queries.
type RunStatusResponse struct {
	RunHandle string         `json:"run_handle"`
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	Result    string         `json:"result,omitempty"`
	Counters  map[string]int `json:"counters,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	StoppedAt *time.Time     `json:"stopped_at,omitempty"`
}

// ReportResponse is the report viewer payload produced by the resolution cascade.
type ReportResponse struct {
	HasReport                bool       `json:"has_report"`
	ReportURL                string     `json:"report_url,omitempty"`
	Source                   string     `json:"source,omitempty"`
	RequiresManualExtraction bool       `json:"requires_manual_extraction"`
	ExpiresAt                *time.Time `json:"expires_at,omitempty"`
	Message                  string     `json:"message,omitempty"`
}

// HistoryEntry represents one persisted run in the dashboard history log.
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

// HistoryResponse is the response body for history listing.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// ReconcileResponse reports the outcome of a history reconciliation.
type ReconcileResponse struct {
	Entries int `json:"entries"`
	Merged  int `json:"merged"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
