package api

import (
	"net/http"
	"strings"

	"encodegate/internal/health"
	"encodegate/internal/logging"
	"encodegate/internal/reaper"
	"encodegate/internal/services"
)

func (s *Server) handleEnsureImage(w http.ResponseWriter, r *http.Request) {
	var body EnsureImageRequest
	if err := decodeBody(r, w, &body); err != nil {
		s.writeFailure(w, r, "image ensure", err)
		return
	}
	image := s.deps.DefaultImage
	if body.Image != nil {
		image = strings.TrimSpace(*body.Image)
	}
	if image == "" {
		s.writeError(w, http.StatusBadRequest, "image is required")
		return
	}
	result, err := s.deps.Provisioner.EnsureImage(r.Context(), image)
	if err != nil {
		s.writeFailure(w, r, "image ensure", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var body CleanupRequest
	if err := decodeBody(r, w, &body); err != nil {
		s.writeFailure(w, r, "container cleanup", err)
		return
	}
	prefix := s.deps.DefaultPrefix
	if body.Prefix != nil {
		prefix = *body.Prefix
	}
	report, err := s.deps.Reaper.Cleanup(r.Context(), prefix)
	if err == nil {
		s.writeJSON(w, http.StatusOK, NewCleanupResponse(report, nil))
		return
	}
	if reapErr, ok := reaper.AsReapError(err); ok && len(reapErr.Failures) > 0 {
		status := services.HTTPStatus(err)
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "container cleanup incomplete", "request_failed",
			logging.Int("status", status),
			logging.Int("failed", len(reapErr.Failures)),
			logging.String(logging.FieldErrorHint, hintFor(err)))
		s.writeJSON(w, status, NewCleanupResponse(report, err))
		return
	}
	s.writeFailure(w, r, "container cleanup", err)
}

func (s *Server) handleEngineHealth(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.deps.Checker.CheckConnection(r.Context())
	if err != nil {
		s.writeFailure(w, r, "engine health", err)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	results := s.deps.Checker.Readiness(r.Context(), s.deps.Readiness)
	status := http.StatusOK
	ready := health.Ready(results)
	if !ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, ReadinessResponse{Ready: ready, Checks: results})
}
