// Package pipeline drives the full trigger flow: generate the test spec,
// push all three artifacts through upload-and-poll, then schedule the run.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"farmgate/internal/farm"
	"farmgate/internal/scheduler"
	"farmgate/internal/testspec"
	"farmgate/internal/upload"
	"farmgate/pkg/api"
)

// RequestError marks a failure caused by the trigger request itself
// (missing fields, unreadable build file) rather than by the pipeline.
type RequestError struct {
	Msg string
}

func (e *RequestError) Error() string { return e.Msg }

func badRequest(format string, args ...any) error {
	return &RequestError{Msg: fmt.Sprintf(format, args...)}
}

// Budgets carries the per-kind upload poll policies. Test specs are tiny
// and settle fast; binaries take the longest.
type Budgets struct {
	Binary   upload.Policy
	Bundle   upload.Policy
	TestSpec upload.Policy
}

// Pipeline uploads, schedules and tracks runs for one default project.
type Pipeline struct {
	farm       farm.API
	uploads    *upload.Engine
	scheduler  *scheduler.Scheduler
	budgets    Budgets
	project    string
	bundlePath string
	log        *slog.Logger
}

// New assembles the pipeline.
func New(api farm.API, uploads *upload.Engine, sched *scheduler.Scheduler, budgets Budgets, project, bundlePath string, log *slog.Logger) *Pipeline {
	return &Pipeline{
		farm:       api,
		uploads:    uploads,
		scheduler:  sched,
		budgets:    budgets,
		project:    project,
		bundlePath: bundlePath,
		log:        log,
	}
}

// Start runs the trigger flow end to end and returns the scheduled run.
func (p *Pipeline) Start(ctx context.Context, req api.StartRunRequest) (api.StartRunResponse, error) {
	sel := testspec.Selection{
		Mode:       testspec.Mode(req.TestMode),
		FilePath:   req.SelectedTest,
		CaseFilter: req.SelectedTestCase,
	}
	platform := testspec.Platform(req.Platform)

	if req.BuildFilePath == "" {
		return api.StartRunResponse{}, badRequest("build_file_path is required")
	}
	if req.DevicePoolHandle == "" {
		return api.StartRunResponse{}, badRequest("device_pool_handle is required")
	}
	specYAML, err := testspec.Generate(sel, platform)
	if err != nil {
		return api.StartRunResponse{}, &RequestError{Msg: err.Error()}
	}

	project := req.ProjectHandle
	if project == "" {
		project = p.project
	}
	name := req.DisplayName
	if name == "" {
		name = fmt.Sprintf("farmgate-%s", uuid.NewString()[:8])
	}

	build, err := os.Open(req.BuildFilePath)
	if err != nil {
		if _, ok := err.(*fs.PathError); ok {
			return api.StartRunResponse{}, badRequest("build file %s is not readable", req.BuildFilePath)
		}
		return api.StartRunResponse{}, err
	}
	defer build.Close()

	bundle, err := os.Open(p.bundlePath)
	if err != nil {
		return api.StartRunResponse{}, fmt.Errorf("opening test bundle %s: %w", p.bundlePath, err)
	}
	defer bundle.Close()

	appJob, err := p.uploads.SubmitAndAwait(ctx, project, filepath.Base(req.BuildFilePath), farm.UploadKindBinary, build, p.budgets.Binary)
	if err != nil {
		return api.StartRunResponse{}, err
	}
	bundleJob, err := p.uploads.SubmitAndAwait(ctx, project, filepath.Base(p.bundlePath), farm.UploadKindTestBundle, bundle, p.budgets.Bundle)
	if err != nil {
		return api.StartRunResponse{}, err
	}
	specJob, err := p.uploads.SubmitAndAwait(ctx, project, name+"-spec.yml", farm.UploadKindTestSpec, bytes.NewReader(specYAML), p.budgets.TestSpec)
	if err != nil {
		return api.StartRunResponse{}, err
	}

	run, err := p.scheduler.Schedule(ctx, project, req.DevicePoolHandle, name, *appJob, *bundleJob, *specJob)
	if err != nil {
		return api.StartRunResponse{}, err
	}

	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if run.Name == "" {
		run.Name = name
	}
	return api.StartRunResponse{
		RunHandle: run.Handle,
		Name:      run.Name,
		Status:    run.Status,
		CreatedAt: created,
	}, nil
}

// Status returns the remote state of a previously scheduled run.
func (p *Pipeline) Status(ctx context.Context, runHandle string) (api.RunStatusResponse, error) {
	run, err := p.farm.GetRun(ctx, runHandle)
	if err != nil {
		return api.RunStatusResponse{}, err
	}
	return api.RunStatusResponse{
		RunHandle: run.Handle,
		Name:      run.Name,
		Status:    run.Status,
		Result:    run.Result,
		Counters:  run.Counters,
		CreatedAt: run.CreatedAt,
		StartedAt: run.StartedAt,
		StoppedAt: run.StoppedAt,
	}, nil
}
