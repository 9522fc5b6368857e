// Package extractor implements the sibling extraction/persistence worker.
// It downloads a run's bundled customer-artifacts archive, finds the
// single-file HTML report inside it and persists it to the report cache.
// The same type serves as the in-process delegate and as the core of the
// standalone extractor binary.
package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"farmgate/internal/delegate"
	"farmgate/internal/store"
)

// reportMarker distinguishes the suite's merged report from other HTML
// files captured off the device (help pages, webviews).
const reportMarker = "mochawesome"

// canonicalReportPaths are checked before falling back to a full scan.
var canonicalReportPaths = []string{
	"Host_Machine_Files/$FARM_ARTIFACTS_DIR/report.html",
	"reports/html/report.html",
	"report.html",
}

// maxArchiveBytes bounds the archive download; customer-artifact bundles
// are tens of megabytes at most.
const maxArchiveBytes = 256 << 20

// Extractor performs extract-report and persist-report tasks.
type Extractor struct {
	cache *store.ReportCache
	http  *http.Client
	log   *slog.Logger
}

// New creates an extractor backed by the given report cache.
func New(cache *store.ReportCache, log *slog.Logger) *Extractor {
	return &Extractor{
		cache: cache,
		http:  &http.Client{Timeout: 5 * time.Minute},
		log:   log,
	}
}

// Invoke implements delegate.Invoker. Content-level failures (archive
// unreadable, no report inside) come back as an unsuccessful Result;
// infrastructure failures (cache writes) are returned as errors.
func (x *Extractor) Invoke(ctx context.Context, task delegate.Task) (delegate.Result, error) {
	if err := task.Validate(); err != nil {
		return delegate.Result{}, err
	}

	switch task.Kind {
	case delegate.TaskExtractReport:
		return x.extract(ctx, task)
	case delegate.TaskPersistReport:
		return x.persist(ctx, task)
	default:
		return delegate.Result{}, fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

func (x *Extractor) extract(ctx context.Context, task delegate.Task) (delegate.Result, error) {
	archive, err := x.download(ctx, task.ArchiveURL)
	if err != nil {
		x.log.Warn("archive download failed", "run", task.RunHandle, "error", err)
		return delegate.Result{Message: fmt.Sprintf("download archive: %v", err)}, nil
	}

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return delegate.Result{Message: fmt.Sprintf("open archive: %v", err)}, nil
	}

	report, found := findReport(reader)
	if !found {
		x.log.Info("no report in archive", "run", task.RunHandle, "entries", len(reader.File))
		return delegate.Result{Message: "archive holds no recognizable report"}, nil
	}

	url, err := x.cache.Store(ctx, task.RunHandle, report)
	if err != nil {
		return delegate.Result{}, fmt.Errorf("persist extracted report: %w", err)
	}

	x.log.Info("report extracted", "run", task.RunHandle, "url", url)
	return delegate.Result{Success: true, URL: url}, nil
}

func (x *Extractor) persist(ctx context.Context, task delegate.Task) (delegate.Result, error) {
	report, err := x.download(ctx, task.ReportURL)
	if err != nil {
		return delegate.Result{Message: fmt.Sprintf("download report: %v", err)}, nil
	}

	url, err := x.cache.Store(ctx, task.RunHandle, report)
	if err != nil {
		return delegate.Result{}, fmt.Errorf("persist report: %w", err)
	}
	return delegate.Result{Success: true, URL: url}, nil
}

func (x *Extractor) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := x.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes))
}

// findReport looks for the single-file report: first at the canonical
// paths, then by scanning every HTML entry for the report marker.
func findReport(reader *zip.Reader) ([]byte, bool) {
	byName := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		byName[f.Name] = f
	}

	for _, candidate := range canonicalReportPaths {
		if f, ok := byName[candidate]; ok {
			if data, err := readEntry(f); err == nil {
				return data, true
			}
		}
	}

	for _, f := range reader.File {
		if strings.ToLower(path.Ext(f.Name)) != ".html" {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			continue
		}
		if bytes.Contains(bytes.ToLower(data), []byte(reportMarker)) {
			return data, true
		}
	}
	return nil, false
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxArchiveBytes))
}
