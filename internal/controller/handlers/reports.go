package handlers

import (
	"errors"
	"net/http"

	"farmgate/internal/farm"
	"farmgate/internal/logger"
	"farmgate/internal/report"
	"farmgate/pkg/api"
)

// GetReport handles GET /runs/{id}/report.
// It walks the resolution cascade. A missing report is a normal answer,
// not an error: the response says so and the client decides what to show.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runHandle := r.PathValue("id")
	if runHandle == "" {
		h.httpError(w, "Missing run id", http.StatusBadRequest)
		return
	}

	res, err := h.reports.Resolve(ctx, runHandle)
	if err != nil {
		var apiErr *farm.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			h.httpError(w, "Run not found", http.StatusNotFound)
			return
		}
		logger.FromContext(ctx, h.log).Error("report resolution failed", "run", runHandle, "error", err)
		var cacheErr *report.CacheError
		if errors.As(err, &cacheErr) {
			h.httpError(w, "Report cache unavailable", http.StatusInternalServerError)
			return
		}
		h.httpError(w, "Failed to resolve report", http.StatusBadGateway)
		return
	}

	h.respondJson(w, http.StatusOK, api.ReportResponse{
		HasReport:                res.Found,
		ReportURL:                res.URL,
		Source:                   res.Source,
		RequiresManualExtraction: res.RequiresManualExtraction,
		ExpiresAt:                res.ExpiresAt,
		Message:                  res.Message,
	})
}
