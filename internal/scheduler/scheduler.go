// Package scheduler turns a trio of succeeded uploads into a scheduled
// remote run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"farmgate/internal/farm"
	"farmgate/internal/upload"
)

// ValidationError indicates the scheduler was handed a job that had not
// reached SUCCEEDED. The upload engine never returns such a job alongside
// a nil error, so hitting this means a caller bug, not a remote condition.
type ValidationError struct {
	Kind   farm.UploadKind
	Status farm.UploadStatus
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cannot schedule run: %s upload is %s, want %s", e.Kind, e.Status, farm.UploadSucceeded)
}

// Scheduler schedules runs against the device farm.
type Scheduler struct {
	farm farm.API
	log  *slog.Logger
}

// New returns a scheduler backed by the given farm client.
func New(api farm.API, log *slog.Logger) *Scheduler {
	return &Scheduler{farm: api, log: log}
}

// Schedule validates that all three uploads succeeded and schedules the
// run. The returned run carries the remote handle and initial status.
func (s *Scheduler) Schedule(ctx context.Context, project, devicePool, name string, app, bundle, spec upload.Job) (farm.Run, error) {
	for _, job := range []upload.Job{app, bundle, spec} {
		if job.Status != farm.UploadSucceeded {
			return farm.Run{}, &ValidationError{Kind: job.Kind, Status: job.Status}
		}
	}

	run, err := s.farm.ScheduleRun(ctx, farm.ScheduleRunRequest{
		ProjectHandle:    project,
		DevicePoolHandle: devicePool,
		AppUpload:        app.Handle,
		TestBundleUpload: bundle.Handle,
		TestSpecUpload:   spec.Handle,
		Name:             name,
	})
	if err != nil {
		return farm.Run{}, fmt.Errorf("scheduling run %q: %w", name, err)
	}

	s.log.Info("run scheduled", "run", run.Handle, "name", name, "status", run.Status)
	return *run, nil
}
