// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"farmgate/internal/report"
	"farmgate/internal/scheduler"
	"farmgate/internal/store"
	"farmgate/internal/upload"
	"farmgate/pkg/api"
)

// RunService is the slice of the pipeline the run handlers need: upload
// all three artifacts, schedule, and query status.
type RunService interface {
	Start(ctx context.Context, req api.StartRunRequest) (api.StartRunResponse, error)
	Status(ctx context.Context, runHandle string) (api.RunStatusResponse, error)
}

// ReportResolver resolves the viewer URL for a run's report.
type ReportResolver interface {
	Resolve(ctx context.Context, runHandle string) (report.Resolution, error)
}

// HistoryService lists and reconciles the persisted run history.
type HistoryService interface {
	List(ctx context.Context) ([]store.HistoryEntry, error)
	ReconcileRemote(ctx context.Context) ([]store.HistoryEntry, int, error)
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	runs    RunService
	reports ReportResolver
	history HistoryService
	ready   func(context.Context) error
	log     *slog.Logger
}

// New creates a Handlers instance. ready may be nil when the controller
// has no backing store worth probing.
func New(runs RunService, reports ReportResolver, hist HistoryService, ready func(context.Context) error, log *slog.Logger) *Handlers {
	return &Handlers{runs: runs, reports: reports, history: hist, ready: ready, log: log}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

// pipelineStatus maps pipeline failures onto HTTP status codes. Upload
// timeouts become 504 so callers can tell a slow farm from a broken one.
func pipelineStatus(err error) int {
	var (
		timeout    *upload.TimeoutError
		creation   *upload.CreationError
		transfer   *upload.TransferError
		failed     *upload.FailedError
		validation *scheduler.ValidationError
	)
	switch {
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &creation), errors.As(err, &transfer), errors.As(err, &failed):
		return http.StatusBadGateway
	case errors.As(err, &validation):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
