package api

import (
	"net/http"

	"encodegate/internal/admission"
	"encodegate/internal/logging"
	"encodegate/internal/metrics"
)

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	_, verdict := s.admit(w, r)
	if !verdict.OK {
		s.writeJSON(w, verdict.Status, verdict)
		return
	}
	s.writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	req, verdict := s.admit(w, r)
	if !verdict.OK {
		s.writeJSON(w, verdict.Status, verdict)
		return
	}
	receipt, err := s.deps.Publisher.Publish(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, "job submit", err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, SubmitResponse{ID: receipt.ID, Topic: receipt.Topic})
}

// admit decodes and validates the body, recording the decision.
func (s *Server) admit(w http.ResponseWriter, r *http.Request) (admission.JobRequest, admission.Verdict) {
	req, err := admission.DecodeJobRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		err = s.deps.Validator.Validate(req)
	}
	verdict := admission.VerdictFor(err)
	if verdict.OK {
		metrics.AdmissionDecisions.WithLabelValues("accepted", "", "").Inc()
	} else {
		metrics.AdmissionDecisions.WithLabelValues("rejected", string(verdict.Kind), verdict.Code).Inc()
		logging.WithContext(r.Context(), s.logger).Debug("job request rejected",
			logging.String("kind", string(verdict.Kind)),
			logging.String("field", verdict.Field),
			logging.String("reason", verdict.Error))
	}
	return req, verdict
}
