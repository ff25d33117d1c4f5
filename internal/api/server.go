package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"encodegate/internal/admission"
	"encodegate/internal/dispatch"
	"encodegate/internal/health"
	"encodegate/internal/logging"
	"encodegate/internal/metrics"
	"encodegate/internal/provision"
	"encodegate/internal/reaper"
	"encodegate/internal/services"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 1 << 20
)

// ImageEnsurer provisions worker images.
type ImageEnsurer interface {
	EnsureImage(ctx context.Context, name string) (provision.Result, error)
}

// ContainerCleaner removes stale containers.
type ContainerCleaner interface {
	Cleanup(ctx context.Context, prefix string) (reaper.Report, error)
}

// EngineChecker reports container engine health.
type EngineChecker interface {
	CheckConnection(ctx context.Context) (health.EngineHealth, error)
	Readiness(ctx context.Context, opts health.ReadinessOptions) []health.Result
}

// Dependencies are the components served by the router. Publisher may be
// nil, in which case job submission reports dispatch as unavailable.
type Dependencies struct {
	Validator   *admission.Validator
	Publisher   dispatch.Publisher
	Provisioner ImageEnsurer
	Reaper      ContainerCleaner
	Checker     EngineChecker
	Readiness   health.ReadinessOptions

	// DefaultImage and DefaultPrefix are used when a request omits the field.
	DefaultImage  string
	DefaultPrefix string

	Logger *slog.Logger
}

// Server holds the handlers.
type Server struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewServer validates deps and returns a server.
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Provisioner == nil || deps.Reaper == nil || deps.Checker == nil {
		return nil, errors.New("api requires provisioner, reaper, and health checker")
	}
	if deps.Validator == nil {
		deps.Validator = admission.NewValidator()
	}
	if deps.Publisher == nil {
		deps.Publisher = dispatch.Disabled{}
	}
	return &Server{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "api"),
	}, nil
}

// Handler builds the routed handler with request-id and metrics middleware.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(metrics.Middleware(metrics.MiddlewareConfig{
		SkipPaths: metrics.DefaultMiddlewareConfig().SkipPaths,
		Route:     routeTemplate,
	}))

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/jobs/validate", s.handleValidate).Methods(http.MethodPost)
	v1.HandleFunc("/jobs", s.handleSubmit).Methods(http.MethodPost)
	v1.HandleFunc("/images/ensure", s.handleEnsureImage).Methods(http.MethodPost)
	v1.HandleFunc("/containers/cleanup", s.handleCleanup).Methods(http.MethodPost)
	v1.HandleFunc("/engine/health", s.handleEngineHealth).Methods(http.MethodGet)

	router.HandleFunc("/healthz", s.handleLiveness).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReadiness).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return router
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

// decodeBody reads an optional JSON object into dst. An empty body leaves dst
// untouched.
func decodeBody(r *http.Request, w http.ResponseWriter, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return services.Wrap(services.ErrSchema, "api", "decode", "request body must be a JSON object with known fields", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return services.Wrap(services.ErrSchema, "api", "decode", "request body must hold a single JSON object", nil)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

// writeFailure maps err to a status and logs server-side failures.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), operation+" failed", "request_failed",
			logging.Int("status", status),
			logging.Error(err),
			logging.String(logging.FieldImpact, "request not served"),
			logging.String(logging.FieldErrorHint, hintFor(err)))
	}
	s.writeError(w, status, err.Error())
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrRuntimeUnavailable):
		return "check that the container engine is running and reachable"
	case errors.Is(err, services.ErrDispatchOffline):
		return "check dispatch configuration and broker reachability"
	case errors.Is(err, services.ErrProvision):
		return "check the image name and registry access"
	default:
		return "see error detail"
	}
}
