// Package report resolves the viewer URL for a completed run's test
// report. Resolution walks a cascade of strategies from cheapest to most
// expensive; a failure inside one remote strategy is logged and the next
// one is tried, so a broken extraction path never hides a downloadable
// archive. A failed cache check is the exception: the answer may already
// be cached, so it surfaces as an error instead of guessing.
package report

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"farmgate/internal/delegate"
	"farmgate/internal/farm"
	"farmgate/internal/observability"
	"farmgate/internal/store"
	"farmgate/pkg/api"
)

// Resolution is the outcome of one resolution attempt.
type Resolution struct {
	Found                    bool
	URL                      string
	Source                   string
	RequiresManualExtraction bool
	ExpiresAt                *time.Time
	Message                  string
}

// CacheError reports a failed report-cache check. The cache is local
// infrastructure, so callers treat this as their own fault rather than
// an upstream one.
type CacheError struct {
	Err error
}

func (e *CacheError) Error() string { return "report cache lookup: " + e.Err.Error() }

func (e *CacheError) Unwrap() error { return e.Err }

// Resolver runs the resolution cascade. Concurrent resolutions of the
// same run are collapsed into one in-flight pass.
type Resolver struct {
	farm     farm.API
	cache    *store.ReportCache
	delegate delegate.Invoker
	log      *slog.Logger
	metrics  *observability.Metrics

	group singleflight.Group
}

// New returns a resolver. The delegate may be nil; extraction is then
// skipped and archives surface as manual downloads.
func New(api farm.API, cache *store.ReportCache, inv delegate.Invoker, log *slog.Logger, metrics *observability.Metrics) *Resolver {
	return &Resolver{farm: api, cache: cache, delegate: inv, log: log, metrics: metrics}
}

// Resolve returns the best available report location for the run.
func (r *Resolver) Resolve(ctx context.Context, runHandle string) (Resolution, error) {
	v, err, _ := r.group.Do(runHandle, func() (any, error) {
		// Collapsed waiters share this one pass, so it must not die
		// with the first caller's context. The strategies bound their
		// own work with client timeouts.
		return r.resolve(context.WithoutCancel(ctx), runHandle)
	})
	if err != nil {
		return Resolution{}, err
	}
	return v.(Resolution), nil
}

func (r *Resolver) resolve(ctx context.Context, runHandle string) (Resolution, error) {
	log := r.log.With("run", runHandle)

	// Cache first: a hit answers without touching the remote service.
	url, ok, err := r.cache.Lookup(ctx, runHandle)
	if err != nil {
		log.Error("report cache lookup failed", "error", err)
		return Resolution{}, &CacheError{Err: err}
	}
	if ok {
		r.observe(api.ReportSourceCached)
		return Resolution{Found: true, URL: url, Source: api.ReportSourceCached}, nil
	}

	artifacts, err := r.farm.ListArtifacts(ctx, runHandle)
	if err != nil {
		return Resolution{}, err
	}

	if direct := findDirectReport(artifacts); direct != nil {
		return r.resolveDirect(ctx, log, runHandle, direct), nil
	}

	if archive := findArchive(artifacts); archive != nil {
		return r.resolveArchive(ctx, log, runHandle, archive), nil
	}

	log.Info("run produced no report artifacts", "artifacts", len(artifacts))
	return Resolution{Message: "run produced no report artifacts"}, nil
}

// resolveDirect persists a directly hosted HTML report into the cache so
// later resolutions stop depending on the signed URL. Persistence is best
// effort: on failure the signed URL itself is returned, together with its
// expiry so callers know it will go stale.
func (r *Resolver) resolveDirect(ctx context.Context, log *slog.Logger, runHandle string, artifact *farm.Artifact) Resolution {
	if r.delegate != nil {
		result, err := r.delegate.Invoke(ctx, delegate.Task{
			Kind:      delegate.TaskPersistReport,
			RunHandle: runHandle,
			ReportURL: artifact.URL,
		})
		if err != nil {
			log.Warn("report persistence errored", "error", err)
		} else if !result.Success {
			log.Warn("report persistence refused", "message", result.Message)
		} else {
			r.observe(api.ReportSourceDirect)
			return Resolution{Found: true, URL: result.URL, Source: api.ReportSourceDirect}
		}
	}

	r.observe(api.ReportSourceDirect)
	return Resolution{
		Found:     true,
		URL:       artifact.URL,
		Source:    api.ReportSourceDirect,
		ExpiresAt: artifact.ExpiresAt,
	}
}

// resolveArchive asks the delegate to dig the report out of the
// customer-artifacts archive. When extraction is unavailable or comes up
// empty, the archive itself is offered for manual download.
func (r *Resolver) resolveArchive(ctx context.Context, log *slog.Logger, runHandle string, archive *farm.Artifact) Resolution {
	if r.delegate != nil {
		result, err := r.delegate.Invoke(ctx, delegate.Task{
			Kind:       delegate.TaskExtractReport,
			RunHandle:  runHandle,
			ArchiveURL: archive.URL,
		})
		if err != nil {
			log.Warn("archive extraction errored", "error", err)
		} else if !result.Success {
			log.Info("archive extraction found no report", "message", result.Message)
		} else {
			r.observe(api.ReportSourceExtracted)
			return Resolution{Found: true, URL: result.URL, Source: api.ReportSourceExtracted}
		}
	}

	r.observe(api.ReportSourceManual)
	return Resolution{
		Found:                    true,
		URL:                      archive.URL,
		Source:                   api.ReportSourceManual,
		RequiresManualExtraction: true,
		ExpiresAt:                archive.ExpiresAt,
		Message:                  "download the artifact archive and open the report manually",
	}
}

func (r *Resolver) observe(source string) {
	if r.metrics != nil {
		r.metrics.RecordResolution(source)
	}
}

func findDirectReport(artifacts []farm.Artifact) *farm.Artifact {
	for i, a := range artifacts {
		if a.Type == farm.ArtifactTypeReport && strings.EqualFold(a.Extension, "html") {
			return &artifacts[i]
		}
	}
	return nil
}

func findArchive(artifacts []farm.Artifact) *farm.Artifact {
	for i, a := range artifacts {
		if a.Type == farm.ArtifactTypeCustomerArchive && strings.EqualFold(a.Extension, "zip") {
			return &artifacts[i]
		}
	}
	return nil
}
