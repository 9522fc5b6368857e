package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"farmgate/internal/delegate"
	"farmgate/internal/farm"
	"farmgate/internal/store"
	"farmgate/internal/store/objectstore"
	"farmgate/pkg/api"
)

type mockFarm struct {
	farm.API

	mu        sync.Mutex
	listCalls int
	artifacts []farm.Artifact
	err       error
}

func (m *mockFarm) ListArtifacts(ctx context.Context, runHandle string) ([]farm.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.artifacts, m.err
}

// failingObjects errors on every access so cache checks cannot be answered.
type failingObjects struct {
	err error
}

func (f *failingObjects) Get(ctx context.Context, key string) ([]byte, error) { return nil, f.err }
func (f *failingObjects) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return f.err
}
func (f *failingObjects) Exists(ctx context.Context, key string) (bool, error) { return false, f.err }
func (f *failingObjects) URL(key string) string                                { return "" }

type mockDelegate struct {
	mu     sync.Mutex
	tasks  []delegate.Task
	result delegate.Result
	err    error
}

func (m *mockDelegate) Invoke(ctx context.Context, task delegate.Task) (delegate.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return m.result, m.err
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCache(t *testing.T) *store.ReportCache {
	t.Helper()

	objects, err := objectstore.New(t.TempDir(), "https://cache.example.com")
	if err != nil {
		t.Fatalf("objectstore.New: %v", err)
	}
	return &store.ReportCache{Objects: objects, Prefix: "reports"}
}

func TestResolveCacheHitSkipsRemote(t *testing.T) {
	cache := newCache(t)
	if _, err := cache.Store(context.Background(), "run-1", []byte("<html>report</html>")); err != nil {
		t.Fatalf("seeding cache: %v", err)
	}

	mock := &mockFarm{}
	r := New(mock, cache, nil, discard(), nil)

	res, err := r.Resolve(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Found || res.Source != api.ReportSourceCached {
		t.Fatalf("expected cached resolution, got %+v", res)
	}
	if mock.listCalls != 0 {
		t.Errorf("cache hit made %d remote calls, want 0", mock.listCalls)
	}
}

func TestResolveDirectReportPersists(t *testing.T) {
	cache := newCache(t)
	mock := &mockFarm{artifacts: []farm.Artifact{
		{Type: farm.ArtifactTypeDeviceLog, Extension: "log", URL: "https://farm/device.log"},
		{Type: farm.ArtifactTypeReport, Extension: "html", URL: "https://farm/signed/report.html"},
	}}
	inv := &mockDelegate{result: delegate.Result{Success: true, URL: "https://cache.example.com/reports/run-2.html"}}
	r := New(mock, cache, inv, discard(), nil)

	res, err := r.Resolve(context.Background(), "run-2")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != api.ReportSourceDirect {
		t.Errorf("source = %q, want %q", res.Source, api.ReportSourceDirect)
	}
	if res.URL != "https://cache.example.com/reports/run-2.html" {
		t.Errorf("expected persisted url, got %q", res.URL)
	}
	if len(inv.tasks) != 1 || inv.tasks[0].Kind != delegate.TaskPersistReport {
		t.Fatalf("expected one persist task, got %+v", inv.tasks)
	}
}

func TestResolveDirectFallsBackToSignedURL(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	cache := newCache(t)
	mock := &mockFarm{artifacts: []farm.Artifact{
		{Type: farm.ArtifactTypeReport, Extension: "html", URL: "https://farm/signed/report.html", ExpiresAt: &expires},
	}}
	inv := &mockDelegate{err: errors.New("delegate unavailable")}
	r := New(mock, cache, inv, discard(), nil)

	res, err := r.Resolve(context.Background(), "run-3")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Found || res.URL != "https://farm/signed/report.html" {
		t.Fatalf("expected signed url fallback, got %+v", res)
	}
	if res.ExpiresAt == nil || !res.ExpiresAt.Equal(expires) {
		t.Errorf("expected expiry %v, got %v", expires, res.ExpiresAt)
	}
}

func TestResolveArchiveExtraction(t *testing.T) {
	cache := newCache(t)
	mock := &mockFarm{artifacts: []farm.Artifact{
		{Type: farm.ArtifactTypeCustomerArchive, Extension: "zip", URL: "https://farm/signed/artifacts.zip"},
	}}
	inv := &mockDelegate{result: delegate.Result{Success: true, URL: "https://cache.example.com/reports/run-4.html"}}
	r := New(mock, cache, inv, discard(), nil)

	res, err := r.Resolve(context.Background(), "run-4")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != api.ReportSourceExtracted {
		t.Errorf("source = %q, want %q", res.Source, api.ReportSourceExtracted)
	}
	if len(inv.tasks) != 1 || inv.tasks[0].Kind != delegate.TaskExtractReport {
		t.Fatalf("expected one extract task, got %+v", inv.tasks)
	}
	if inv.tasks[0].ArchiveURL != "https://farm/signed/artifacts.zip" {
		t.Errorf("unexpected archive url %q", inv.tasks[0].ArchiveURL)
	}
}

func TestResolveArchiveManualFallback(t *testing.T) {
	expires := time.Now().Add(30 * time.Minute)
	cache := newCache(t)
	mock := &mockFarm{artifacts: []farm.Artifact{
		{Type: farm.ArtifactTypeCustomerArchive, Extension: "zip", URL: "https://farm/signed/artifacts.zip", ExpiresAt: &expires},
	}}
	inv := &mockDelegate{result: delegate.Result{Message: "archive holds no recognizable report"}}
	r := New(mock, cache, inv, discard(), nil)

	res, err := r.Resolve(context.Background(), "run-5")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Found {
		t.Fatal("manual fallback is still a successful resolution")
	}
	if res.Source != api.ReportSourceManual || !res.RequiresManualExtraction {
		t.Errorf("expected manual resolution, got %+v", res)
	}
	if res.URL != "https://farm/signed/artifacts.zip" {
		t.Errorf("expected archive url, got %q", res.URL)
	}
}

func TestResolveNoDelegateGoesManual(t *testing.T) {
	cache := newCache(t)
	mock := &mockFarm{artifacts: []farm.Artifact{
		{Type: farm.ArtifactTypeCustomerArchive, Extension: "zip", URL: "https://farm/signed/artifacts.zip"},
	}}
	r := New(mock, cache, nil, discard(), nil)

	res, err := r.Resolve(context.Background(), "run-6")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Source != api.ReportSourceManual || !res.RequiresManualExtraction {
		t.Errorf("expected manual resolution without delegate, got %+v", res)
	}
}

func TestResolveNoArtifacts(t *testing.T) {
	cache := newCache(t)
	mock := &mockFarm{artifacts: []farm.Artifact{
		{Type: farm.ArtifactTypeScreenshot, Extension: "png", URL: "https://farm/shot.png"},
	}}
	r := New(mock, cache, nil, discard(), nil)

	res, err := r.Resolve(context.Background(), "run-7")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Found {
		t.Fatalf("expected no report, got %+v", res)
	}
	if res.Message == "" {
		t.Error("expected explanatory message")
	}
}

func TestResolveListError(t *testing.T) {
	cache := newCache(t)
	listErr := errors.New("farm unavailable")
	mock := &mockFarm{err: listErr}
	r := New(mock, cache, nil, discard(), nil)

	if _, err := r.Resolve(context.Background(), "run-8"); !errors.Is(err, listErr) {
		t.Fatalf("expected wrapped list error, got %v", err)
	}
}

func TestResolveCacheCheckFailureSurfaces(t *testing.T) {
	storeErr := errors.New("cache volume unmounted")
	cache := &store.ReportCache{Objects: &failingObjects{err: storeErr}, Prefix: "reports"}
	mock := &mockFarm{artifacts: []farm.Artifact{
		{Type: farm.ArtifactTypeReport, Extension: "html", URL: "https://signed.example.com/report.html"},
	}}
	r := New(mock, cache, nil, discard(), nil)

	_, err := r.Resolve(context.Background(), "run-9")
	var cacheErr *CacheError
	if !errors.As(err, &cacheErr) {
		t.Fatalf("Resolve error = %v, want *CacheError", err)
	}
	if !errors.Is(err, storeErr) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if mock.listCalls != 0 {
		t.Errorf("failed cache check made %d remote calls, want 0", mock.listCalls)
	}
}

func TestResolveSurvivesCallerCancellation(t *testing.T) {
	cache := newCache(t)
	mock := &mockFarm{artifacts: []farm.Artifact{
		{Type: farm.ArtifactTypeReport, Extension: "html", URL: "https://signed.example.com/report.html"},
	}}
	r := New(mock, cache, nil, discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Resolve(ctx, "run-10")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.Found || res.Source != api.ReportSourceDirect {
		t.Fatalf("resolution = %+v, want direct report", res)
	}
}
