package farm

import "time"

// UploadKind identifies what an upload slot will receive.
type UploadKind string

const (
	UploadKindBinary     UploadKind = "APP_BINARY"
	UploadKindTestBundle UploadKind = "TEST_BUNDLE"
	UploadKindTestSpec   UploadKind = "TEST_SPEC"
)

// UploadStatus is the remote processing state of an upload.
type UploadStatus string

const (
	UploadInitialized UploadStatus = "INITIALIZED"
	UploadProcessing  UploadStatus = "PROCESSING"
	UploadSucceeded   UploadStatus = "SUCCEEDED"
	UploadFailed      UploadStatus = "FAILED"
)

// Terminal reports whether the status is a final remote state.
// An upload never transitions out of a terminal state.
func (s UploadStatus) Terminal() bool {
	return s == UploadSucceeded || s == UploadFailed
}

// Upload is a remote upload slot. PutURL is the pre-signed destination
// the payload bytes are transferred to; it is only populated on creation.
type Upload struct {
	Handle   string       `json:"handle"`
	Name     string       `json:"name"`
	Kind     UploadKind   `json:"kind"`
	Status   UploadStatus `json:"status"`
	PutURL   string       `json:"put_url,omitempty"`
	Message  string       `json:"message,omitempty"`
	Metadata string       `json:"metadata,omitempty"`
}

// Run statuses reported by the device-testing service.
const (
	RunStatusScheduling = "SCHEDULING"
	RunStatusPending    = "PENDING"
	RunStatusRunning    = "RUNNING"
	RunStatusCompleted  = "COMPLETED"
)

// Run results for completed runs.
const (
	RunResultPassed  = "PASSED"
	RunResultFailed  = "FAILED"
	RunResultErrored = "ERRORED"
	RunResultStopped = "STOPPED"
)

// Run is a remote run record. Read-only from this system's perspective
// after scheduling.
type Run struct {
	Handle    string         `json:"handle"`
	Name      string         `json:"name"`
	Status    string         `json:"status"`
	Result    string         `json:"result,omitempty"`
	Platform  string         `json:"platform,omitempty"`
	Counters  map[string]int `json:"counters,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	StoppedAt *time.Time     `json:"stopped_at,omitempty"`
}

// Completed reports whether the run reached its terminal status.
func (r *Run) Completed() bool {
	return r.Status == RunStatusCompleted
}

// Artifact types of interest to the report resolver.
const (
	ArtifactTypeReport           = "SINGLE_FILE_REPORT"
	ArtifactTypeCustomerArchive  = "CUSTOMER_ARTIFACTS"
	ArtifactTypeScreenshot       = "SCREENSHOT"
	ArtifactTypeDeviceLog        = "DEVICE_LOG"
	ArtifactTypeInstrumentOutput = "INSTRUMENTATION_OUTPUT"
)

// Artifact is one file produced by a run. URL is a time-limited signed link.
type Artifact struct {
	Handle    string     `json:"handle"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Extension string     `json:"extension"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ScheduleRunRequest carries the handles required to schedule a run.
type ScheduleRunRequest struct {
	ProjectHandle    string `json:"project_handle"`
	DevicePoolHandle string `json:"device_pool_handle"`
	AppUpload        string `json:"app_upload"`
	TestBundleUpload string `json:"test_bundle_upload"`
	TestSpecUpload   string `json:"test_spec_upload"`
	Name             string `json:"name"`
}
