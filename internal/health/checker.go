package health

import (
	"context"
	"log/slog"
	"time"

	"encodegate/internal/logging"
	"encodegate/internal/metrics"
	"encodegate/internal/runtime"
)

// EngineHealth is a transient snapshot of engine state.
type EngineHealth struct {
	Version        string    `json:"version"`
	APIVersion     string    `json:"apiVersion"`
	ContainerCount int       `json:"containerCount"`
	RunningCount   int       `json:"runningCount"`
	PausedCount    int       `json:"pausedCount"`
	StoppedCount   int       `json:"stoppedCount"`
	ImageCount     int       `json:"imageCount"`
	CheckedAt      time.Time `json:"checkedAt"`
}

// Checker queries the engine for health information.
type Checker struct {
	gateway runtime.Gateway
	logger  *slog.Logger
	now     func() time.Time
}

// New builds a Checker around gateway.
func New(gateway runtime.Gateway, logger *slog.Logger) *Checker {
	return &Checker{
		gateway: gateway,
		logger:  logging.NewComponentLogger(logger, "health"),
		now:     time.Now,
	}
}

// CheckConnection asks the engine for a fresh snapshot. The error matches
// services.ErrRuntimeUnavailable when the engine cannot be reached. The
// returned ContainerCount is never below RunningCount.
func (p *Checker) CheckConnection(ctx context.Context) (EngineHealth, error) {
	info, err := p.gateway.Info(ctx)
	if err != nil {
		metrics.EngineUp.Set(0)
		logging.WithContext(ctx, p.logger).Debug("engine health check failed", logging.Error(err))
		return EngineHealth{}, err
	}
	health := EngineHealth{
		Version:        info.Version,
		APIVersion:     info.APIVersion,
		ContainerCount: nonNegative(info.Containers),
		RunningCount:   nonNegative(info.ContainersRunning),
		PausedCount:    nonNegative(info.ContainersPaused),
		StoppedCount:   nonNegative(info.ContainersStopped),
		ImageCount:     nonNegative(info.Images),
		CheckedAt:      p.now().UTC(),
	}
	// Engine counters are sampled independently and can briefly disagree.
	if health.ContainerCount < health.RunningCount {
		health.ContainerCount = health.RunningCount
	}

	metrics.EngineUp.Set(1)
	metrics.EngineContainers.WithLabelValues("total").Set(float64(health.ContainerCount))
	metrics.EngineContainers.WithLabelValues("running").Set(float64(health.RunningCount))
	metrics.EngineContainers.WithLabelValues("paused").Set(float64(health.PausedCount))
	metrics.EngineContainers.WithLabelValues("stopped").Set(float64(health.StoppedCount))
	return health, nil
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
