package farm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"farmgate/internal/auth"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, auth.StaticProvider{Token: "test-token"})
}

func TestCreateUpload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/projects/proj-1/uploads" {
			t.Errorf("path = %s, want /projects/proj-1/uploads", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["kind"] != string(UploadKindBinary) {
			t.Errorf("kind = %q, want %q", body["kind"], UploadKindBinary)
		}

		json.NewEncoder(w).Encode(Upload{
			Handle: "upload/abc",
			Name:   body["name"],
			Kind:   UploadKindBinary,
			Status: UploadInitialized,
			PutURL: "https://store.example.com/slot/abc",
		})
	})

	upload, err := client.CreateUpload(context.Background(), "proj-1", "app.apk", UploadKindBinary)
	if err != nil {
		t.Fatalf("CreateUpload() error: %v", err)
	}
	if upload.Handle != "upload/abc" {
		t.Errorf("Handle = %q, want upload/abc", upload.Handle)
	}
	if upload.PutURL == "" {
		t.Error("PutURL not populated on creation")
	}
	if upload.Status != UploadInitialized {
		t.Errorf("Status = %q, want INITIALIZED", upload.Status)
	}
}

func TestPutPayload(t *testing.T) {
	var received string
	slot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("payload transfer must not carry a bearer token")
		}
		b, _ := io.ReadAll(r.Body)
		received = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer slot.Close()

	client := NewClient("http://unused", auth.StaticProvider{Token: "t"})
	err := client.PutPayload(context.Background(), slot.URL, strings.NewReader("binary-bytes"))
	if err != nil {
		t.Fatalf("PutPayload() error: %v", err)
	}
	if received != "binary-bytes" {
		t.Errorf("payload = %q, want binary-bytes", received)
	}
}

func TestPutPayloadNonSuccess(t *testing.T) {
	slot := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer slot.Close()

	client := NewClient("http://unused", auth.StaticProvider{Token: "t"})
	err := client.PutPayload(context.Background(), slot.URL, strings.NewReader("x"))

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", apiErr.StatusCode)
	}
}

func TestScheduleRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/runs" {
			t.Errorf("path = %s, want /runs", r.URL.Path)
		}

		var req ScheduleRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req.AppUpload == "" || req.TestBundleUpload == "" || req.TestSpecUpload == "" {
			t.Error("schedule request missing upload handles")
		}

		json.NewEncoder(w).Encode(Run{
			Handle: "run/xyz",
			Name:   req.Name,
			Status: RunStatusScheduling,
		})
	})

	run, err := client.ScheduleRun(context.Background(), ScheduleRunRequest{
		ProjectHandle:    "proj-1",
		DevicePoolHandle: "pool-1",
		AppUpload:        "upload/a",
		TestBundleUpload: "upload/b",
		TestSpecUpload:   "upload/c",
		Name:             "nightly",
	})
	if err != nil {
		t.Fatalf("ScheduleRun() error: %v", err)
	}
	if run.Handle != "run/xyz" {
		t.Errorf("Handle = %q, want run/xyz", run.Handle)
	}
	if run.Completed() {
		t.Error("freshly scheduled run reported completed")
	}
}

func TestListArtifacts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/runs/run%2Fxyz/artifacts" && r.URL.Path != "/runs/run/xyz/artifacts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string][]Artifact{
			"artifacts": {
				{Handle: "art/1", Name: "report.html", Type: ArtifactTypeReport, URL: "https://x/report.html"},
				{Handle: "art/2", Name: "Customer Artifacts.zip", Type: ArtifactTypeCustomerArchive, URL: "https://x/ca.zip"},
			},
		})
	})

	artifacts, err := client.ListArtifacts(context.Background(), "run/xyz")
	if err != nil {
		t.Fatalf("ListArtifacts() error: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("len(artifacts) = %d, want 2", len(artifacts))
	}
	if artifacts[0].Type != ArtifactTypeReport {
		t.Errorf("artifacts[0].Type = %q", artifacts[0].Type)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such run"}`, http.StatusNotFound)
	})

	_, err := client.GetRun(context.Background(), "run/missing")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
}

func TestUploadStatusTerminal(t *testing.T) {
	tests := []struct {
		status   UploadStatus
		terminal bool
	}{
		{UploadInitialized, false},
		{UploadProcessing, false},
		{UploadSucceeded, true},
		{UploadFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}
