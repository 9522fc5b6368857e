// Package farm is the HTTP client for the remote device-testing service.
// It covers the five operations the pipeline needs: create-upload,
// get-upload-status, schedule-run, list-artifacts and list-runs.
package farm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"farmgate/internal/auth"
)

// API is the subset of the device-testing service consumed by the pipeline.
// Implemented by Client; mocked in tests.
type API interface {
	CreateUpload(ctx context.Context, project, name string, kind UploadKind) (*Upload, error)
	PutPayload(ctx context.Context, putURL string, payload io.Reader) error
	GetUpload(ctx context.Context, handle string) (*Upload, error)
	ScheduleRun(ctx context.Context, req ScheduleRunRequest) (*Run, error)
	GetRun(ctx context.Context, handle string) (*Run, error)
	ListArtifacts(ctx context.Context, runHandle string) ([]Artifact, error)
	ListRuns(ctx context.Context, project string) ([]Run, error)
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("farm api returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the device-testing service over HTTP.
type Client struct {
	baseURL    string
	creds      auth.CredentialProvider
	httpClient *http.Client
}

// NewClient creates a farm client. Credentials are fetched per request from
// the provider so TTL-based refresh happens transparently.
func NewClient(baseURL string, creds auth.CredentialProvider) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// CreateUpload requests a new upload slot and returns its handle together
// with the pre-signed destination URL.
func (c *Client) CreateUpload(ctx context.Context, project, name string, kind UploadKind) (*Upload, error) {
	body := map[string]string{
		"name": name,
		"kind": string(kind),
	}

	var upload Upload
	path := fmt.Sprintf("/projects/%s/uploads", url.PathEscape(project))
	if err := c.do(ctx, http.MethodPost, path, body, &upload); err != nil {
		return nil, fmt.Errorf("create upload slot for %s: %w", kind, err)
	}
	return &upload, nil
}

// PutPayload transfers the artifact bytes to the pre-signed destination.
// The destination is outside the service API, so no bearer token is sent.
func (c *Client) PutPayload(ctx context.Context, putURL string, payload io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, payload)
	if err != nil {
		return fmt.Errorf("build payload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transfer payload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	return nil
}

// GetUpload returns the current remote state of an upload.
func (c *Client) GetUpload(ctx context.Context, handle string) (*Upload, error) {
	var upload Upload
	if err := c.do(ctx, http.MethodGet, "/uploads/"+url.PathEscape(handle), nil, &upload); err != nil {
		return nil, fmt.Errorf("get upload %s: %w", handle, err)
	}
	return &upload, nil
}

// ScheduleRun schedules a run against a device pool and returns the
// initial run record. It does not await completion.
func (c *Client) ScheduleRun(ctx context.Context, req ScheduleRunRequest) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodPost, "/runs", req, &run); err != nil {
		return nil, fmt.Errorf("schedule run %q: %w", req.Name, err)
	}
	return &run, nil
}

// GetRun returns the current remote state of a run.
func (c *Client) GetRun(ctx context.Context, handle string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, "/runs/"+url.PathEscape(handle), nil, &run); err != nil {
		return nil, fmt.Errorf("get run %s: %w", handle, err)
	}
	return &run, nil
}

// ListArtifacts lists the files produced by a run.
func (c *Client) ListArtifacts(ctx context.Context, runHandle string) ([]Artifact, error) {
	var resp struct {
		Artifacts []Artifact `json:"artifacts"`
	}
	path := "/runs/" + url.PathEscape(runHandle) + "/artifacts"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list artifacts for %s: %w", runHandle, err)
	}
	return resp.Artifacts, nil
}

// ListRuns lists the runs of a project, newest first.
func (c *Client) ListRuns(ctx context.Context, project string) ([]Run, error) {
	var resp struct {
		Runs []Run `json:"runs"`
	}
	path := fmt.Sprintf("/projects/%s/runs", url.PathEscape(project))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list runs for %s: %w", project, err)
	}
	return resp.Runs, nil
}

// do executes one JSON request against the service API.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return fmt.Errorf("fetch credentials: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
