// Package upload implements the upload-and-poll primitive: create a remote
// upload slot, transfer the payload, then poll until a terminal state inside
// a bounded attempt budget.
package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"

	"farmgate/internal/farm"
	"farmgate/internal/observability"
)

// Job tracks one upload through the engine. It is discarded once a terminal
// status is reached; the remote handle persists on the service side.
type Job struct {
	Kind         farm.UploadKind
	Handle       string
	Status       farm.UploadStatus
	AttemptsMade int
	MaxAttempts  int
}

// Policy bounds the polling loop. NewBackOff is called once per submission
// so a policy value can be shared between uploads.
type Policy struct {
	MaxAttempts int
	NewBackOff  func() backoff.BackOff
}

// ConstantPolicy polls every interval, up to maxAttempts times.
func ConstantPolicy(interval time.Duration, maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(interval)
		},
	}
}

// ExponentialPolicy starts at initial and backs off exponentially, up to
// maxAttempts polls.
func ExponentialPolicy(initial time.Duration, maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Engine runs submissions against the device-testing service.
type Engine struct {
	farm    farm.API
	log     *slog.Logger
	metrics *observability.Metrics

	// sleep is overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an upload engine. metrics may be nil.
func New(api farm.API, log *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		farm:    api,
		log:     log,
		metrics: metrics,
		sleep:   sleepCtx,
	}
}

// SubmitAndAwait creates an upload slot for kind, transfers payload to it and
// polls the remote status until it is terminal or the attempt budget is spent.
// The returned Job is also populated on error, so callers can report how far
// the submission got.
func (e *Engine) SubmitAndAwait(ctx context.Context, project, name string, kind farm.UploadKind, payload io.Reader, pol Policy) (*Job, error) {
	job := &Job{Kind: kind, MaxAttempts: pol.MaxAttempts}

	created, err := e.farm.CreateUpload(ctx, project, name, kind)
	if err != nil {
		return job, &CreationError{Kind: kind, Err: err}
	}
	job.Handle = created.Handle
	job.Status = created.Status
	if job.Status == "" {
		job.Status = farm.UploadInitialized
	}
	e.log.Info("upload slot created", "kind", kind, "handle", job.Handle)
	e.observe("created", kind)

	if err := e.farm.PutPayload(ctx, created.PutURL, payload); err != nil {
		// No retry here: a failed transfer is terminal for this job and
		// the caller decides whether to resubmit.
		job.Status = farm.UploadFailed
		return job, &TransferError{Kind: kind, Handle: job.Handle, Err: err}
	}
	e.log.Info("upload payload transferred", "kind", kind, "handle", job.Handle)

	bo := pol.NewBackOff()
	bo.Reset()

	for job.AttemptsMade < pol.MaxAttempts {
		current, err := e.farm.GetUpload(ctx, job.Handle)
		if err != nil {
			return job, fmt.Errorf("polling %s upload %s: %w", kind, job.Handle, err)
		}
		job.AttemptsMade++
		e.observe("poll", kind)

		if current.Status != job.Status {
			e.log.Info("upload status transition",
				"kind", kind,
				"handle", job.Handle,
				"from", job.Status,
				"to", current.Status,
				"attempt", job.AttemptsMade)
		}
		job.Status = current.Status

		switch current.Status {
		case farm.UploadSucceeded:
			e.observe("succeeded", kind)
			return job, nil
		case farm.UploadFailed:
			e.observe("failed", kind)
			return job, &FailedError{Kind: kind, Handle: job.Handle, Message: current.Message}
		}

		if job.AttemptsMade >= pol.MaxAttempts {
			break
		}
		if err := e.sleep(ctx, bo.NextBackOff()); err != nil {
			return job, err
		}
	}

	e.observe("timeout", kind)
	return job, &TimeoutError{Kind: kind, Handle: job.Handle, Attempts: job.AttemptsMade}
}

func (e *Engine) observe(event string, kind farm.UploadKind) {
	if e.metrics != nil {
		e.metrics.RecordUpload(event, string(kind))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
