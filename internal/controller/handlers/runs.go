package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"farmgate/internal/farm"
	"farmgate/internal/logger"
	"farmgate/internal/pipeline"
	"farmgate/pkg/api"
)

// StartRun handles POST /runs.
// It drives the full trigger flow: spec generation, three upload-and-poll
// cycles, and run scheduling. The call blocks until the run is scheduled
// or an upload gives up.
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.log)

	var req api.StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.runs.Start(ctx, req)
	if err != nil {
		var reqErr *pipeline.RequestError
		if errors.As(err, &reqErr) {
			h.httpError(w, reqErr.Msg, http.StatusBadRequest)
			return
		}
		log.Error("run trigger failed", "error", err)
		h.httpError(w, err.Error(), pipelineStatus(err))
		return
	}

	log.Info("run triggered", "run", resp.RunHandle, "name", resp.Name)
	h.respondJson(w, http.StatusCreated, resp)
}

// GetRun handles GET /runs/{id}.
// Run state lives on the remote service; this is a plain passthrough.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runHandle := r.PathValue("id")
	if runHandle == "" {
		h.httpError(w, "Missing run id", http.StatusBadRequest)
		return
	}

	resp, err := h.runs.Status(ctx, runHandle)
	if err != nil {
		var apiErr *farm.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			h.httpError(w, "Run not found", http.StatusNotFound)
			return
		}
		logger.FromContext(ctx, h.log).Error("run status query failed", "run", runHandle, "error", err)
		h.httpError(w, "Failed to query run status", http.StatusBadGateway)
		return
	}

	h.respondJson(w, http.StatusOK, resp)
}
