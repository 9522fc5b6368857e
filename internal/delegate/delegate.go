// Package delegate provides the task-submission interface for sibling
// work: report extraction from bundled archives and report persistence
// into the cache. Implementations run the task in-process, as a
// subprocess, or in a container.
package delegate

import (
	"context"
	"encoding/json"
	"fmt"
)

// TaskKind identifies the delegated operation.
type TaskKind string

const (
	// TaskExtractReport unpacks a customer-artifacts archive and looks
	// for the single-file report inside it.
	TaskExtractReport TaskKind = "extract_report"

	// TaskPersistReport copies a remotely hosted report into the cache.
	TaskPersistReport TaskKind = "persist_report"
)

// Task is the payload handed to a delegate.
type Task struct {
	Kind       TaskKind `json:"kind"`
	RunHandle  string   `json:"run_handle"`
	ArchiveURL string   `json:"archive_url,omitempty"`
	ReportURL  string   `json:"report_url,omitempty"`
}

// Validate checks kind-specific required fields.
func (t Task) Validate() error {
	if t.RunHandle == "" {
		return fmt.Errorf("task requires a run handle")
	}
	switch t.Kind {
	case TaskExtractReport:
		if t.ArchiveURL == "" {
			return fmt.Errorf("extract_report task requires an archive url")
		}
	case TaskPersistReport:
		if t.ReportURL == "" {
			return fmt.Errorf("persist_report task requires a report url")
		}
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	return nil
}

// Result is the delegate's answer. Success false with a message is a
// task-level failure (report not found, archive unreadable); transport or
// process failures surface as errors from Invoke instead.
type Result struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message,omitempty"`
}

// Invoker submits one task and waits for its result.
type Invoker interface {
	Invoke(ctx context.Context, task Task) (Result, error)
}

// EncodeTask serializes a task for the subprocess and container runners.
func EncodeTask(task Task) ([]byte, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	return data, nil
}

// DecodeResult parses a delegate's stdout payload.
func DecodeResult(data []byte) (Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("decode delegate result: %w", err)
	}
	return res, nil
}
