package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"encodegate/internal/logging"
	"encodegate/internal/metrics"
	"encodegate/internal/runtime"
	"encodegate/internal/services"
)

// ErrEmptyPrefix rejects a cleanup that would match every container.
var ErrEmptyPrefix = errors.New("container name prefix must not be empty")

// SkipReason explains why a matching container was left alone.
type SkipReason string

const (
	SkipRunning SkipReason = "running"
	SkipGone    SkipReason = "gone"
)

// Skipped is a matching container that was not removed.
type Skipped struct {
	Container runtime.ContainerRecord `json:"container"`
	Reason    SkipReason              `json:"reason"`
}

// Failure is a container whose inspection or removal failed.
type Failure struct {
	Container runtime.ContainerRecord `json:"container"`
	Err       error                   `json:"-"`
	Message   string                  `json:"error"`
}

// Report summarizes one cleanup run.
type Report struct {
	Prefix   string                    `json:"prefix"`
	Matched  int                       `json:"matched"`
	Removed  []runtime.ContainerRecord `json:"removed"`
	Skipped  []Skipped                 `json:"skipped"`
	Failures []Failure                 `json:"failures"`
}

// RemovedCount is the number of containers removed by the run.
func (r Report) RemovedCount() int {
	return len(r.Removed)
}

// ReapError reports a cleanup that did not fully succeed. It matches
// services.ErrReap and every underlying cause through errors.Is.
type ReapError struct {
	Prefix   string
	Removed  int
	Failures []Failure
	cause    error
}

func (e *ReapError) Error() string {
	if e.cause != nil && len(e.Failures) == 0 {
		return fmt.Sprintf("%v: prefix %q: %v", services.ErrReap, e.Prefix, e.cause)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, failure := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", failure.Container.Name, failure.Err))
	}
	return fmt.Sprintf("%v: prefix %q: removed %d, %d failed (%s)",
		services.ErrReap, e.Prefix, e.Removed, len(e.Failures), strings.Join(parts, "; "))
}

func (e *ReapError) Unwrap() []error {
	errs := []error{services.ErrReap}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	for _, failure := range e.Failures {
		errs = append(errs, failure.Err)
	}
	return errs
}

// AsReapError extracts a *ReapError from err.
func AsReapError(err error) (*ReapError, bool) {
	var reapErr *ReapError
	if errors.As(err, &reapErr) {
		return reapErr, true
	}
	return nil, false
}

// Reaper removes non-running containers by name prefix.
type Reaper struct {
	gateway runtime.Gateway
	logger  *slog.Logger
}

// New builds a Reaper around gateway.
func New(gateway runtime.Gateway, logger *slog.Logger) *Reaper {
	return &Reaper{gateway: gateway, logger: logging.NewComponentLogger(logger, "reaper")}
}

// Cleanup removes every container whose name starts with prefix and whose
// state is not running. The returned Report is populated even when err is a
// *ReapError.
func (r *Reaper) Cleanup(ctx context.Context, prefix string) (Report, error) {
	prefix = strings.TrimSpace(prefix)
	report := Report{Prefix: prefix, Removed: []runtime.ContainerRecord{}, Skipped: []Skipped{}, Failures: []Failure{}}
	if prefix == "" {
		return report, fmt.Errorf("%w: %w", services.ErrSchema, ErrEmptyPrefix)
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldPrefix, prefix))

	containers, err := r.gateway.ListContainers(ctx, true)
	if err != nil {
		metrics.ReaperRunsTotal.WithLabelValues("failed").Inc()
		return report, &ReapError{Prefix: prefix, cause: err}
	}

	var interrupted error
	for _, container := range containers {
		if !strings.HasPrefix(container.Name, prefix) {
			continue
		}
		report.Matched++
		if err := ctx.Err(); err != nil {
			interrupted = err
			break
		}
		if container.Running() {
			report.Skipped = append(report.Skipped, Skipped{Container: container, Reason: SkipRunning})
			continue
		}
		r.reapOne(ctx, logger, container, &report)
	}

	for _, skip := range report.Skipped {
		metrics.ReaperContainers.WithLabelValues("skipped").Inc()
		logger.Debug("container skipped",
			logging.String(logging.FieldContainerName, skip.Container.Name),
			logging.String("reason", string(skip.Reason)))
	}
	metrics.ReaperContainers.WithLabelValues("removed").Add(float64(report.RemovedCount()))
	metrics.ReaperContainers.WithLabelValues("failed").Add(float64(len(report.Failures)))
	metrics.ReaperLastRunTimestamp.Set(float64(time.Now().Unix()))

	if interrupted != nil || len(report.Failures) > 0 {
		metrics.ReaperRunsTotal.WithLabelValues("partial").Inc()
		logging.WarnWithContext(logger, "container cleanup incomplete", "reap_partial",
			logging.Int("removed", report.RemovedCount()),
			logging.Int("failed", len(report.Failures)),
			logging.Alert("reap_incomplete"),
			logging.String(logging.FieldImpact, "stale containers remain on the engine"),
			logging.String(logging.FieldErrorHint, "rerun cleanup once the engine is healthy"))
		return report, &ReapError{
			Prefix:   prefix,
			Removed:  report.RemovedCount(),
			Failures: report.Failures,
			cause:    interrupted,
		}
	}
	metrics.ReaperRunsTotal.WithLabelValues("ok").Inc()
	logger.Info("container cleanup complete",
		logging.Int("matched", report.Matched),
		logging.Int("removed", report.RemovedCount()),
		logging.Int("skipped", len(report.Skipped)))
	return report, nil
}

func (r *Reaper) reapOne(ctx context.Context, logger *slog.Logger, container runtime.ContainerRecord, report *Report) {
	current, err := r.gateway.GetContainer(ctx, container.ID)
	switch {
	case errors.Is(err, runtime.ErrContainerNotFound):
		report.Skipped = append(report.Skipped, Skipped{Container: container, Reason: SkipGone})
		return
	case err != nil:
		report.Failures = append(report.Failures, newFailure(container, err))
		return
	case current.Running():
		container.State = current.State
		report.Skipped = append(report.Skipped, Skipped{Container: container, Reason: SkipRunning})
		return
	}

	if err := r.gateway.RemoveContainer(ctx, container.ID, true); err != nil {
		if errors.Is(err, runtime.ErrContainerNotFound) {
			report.Skipped = append(report.Skipped, Skipped{Container: container, Reason: SkipGone})
			return
		}
		report.Failures = append(report.Failures, newFailure(container, err))
		return
	}
	report.Removed = append(report.Removed, container)
	logger.Info("container removed",
		logging.String(logging.FieldContainerID, container.ID),
		logging.String(logging.FieldContainerName, container.Name),
		logging.String("state", string(container.State)))
}

func newFailure(container runtime.ContainerRecord, err error) Failure {
	return Failure{Container: container, Err: err, Message: err.Error()}
}
