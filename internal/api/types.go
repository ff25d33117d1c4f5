package api

import (
	"encodegate/internal/health"
	"encodegate/internal/reaper"
)

type errorResponse struct {
	Error string `json:"error"`
}

// EnsureImageRequest is the body of POST /v1/images/ensure. A missing image
// falls back to the configured worker image.
type EnsureImageRequest struct {
	Image *string `json:"image"`
}

// CleanupRequest is the body of POST /v1/containers/cleanup. A missing prefix
// falls back to the configured container prefix; an empty one is rejected.
type CleanupRequest struct {
	Prefix *string `json:"prefix"`
}

// CleanupResponse carries the removal count and the full report, plus an
// error when some removals failed.
type CleanupResponse struct {
	Removed int           `json:"removed"`
	Report  reaper.Report `json:"report"`
	Error   string        `json:"error,omitempty"`
}

// NewCleanupResponse builds the response for a finished cleanup run.
func NewCleanupResponse(report reaper.Report, err error) CleanupResponse {
	resp := CleanupResponse{Removed: report.RemovedCount(), Report: report}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// SubmitResponse acknowledges a published job.
type SubmitResponse struct {
	ID    string `json:"id"`
	Topic string `json:"topic"`
}

// ReadinessResponse lists readiness check results.
type ReadinessResponse struct {
	Ready  bool            `json:"ready"`
	Checks []health.Result `json:"checks"`
}
