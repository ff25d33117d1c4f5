// Package daemonrun runs the encodegate daemon in the foreground until it
// receives SIGINT or SIGTERM. Both encodegated and `encodegate serve` use it.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"encodegate/internal/config"
	"encodegate/internal/daemon"
	"encodegate/internal/logging"
)

const (
	currentLogName = "encodegate.log"
	pidFileName    = "encodegated.pid"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
}

// Run starts the daemon and blocks until cmdCtx ends or a signal arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("encodegate-%s.log", runID))

	logCfg := *cfg
	if strings.TrimSpace(opts.LogLevel) != "" {
		logCfg.Logging.Level = opts.LogLevel
	}
	logger, err := logging.NewFromConfig(&logCfg, filepath.Base(logPath))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logRuntimeSnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		logging.WarnWithContext(logger, "log pointer not updated", "log_pointer_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, currentLogName+" still shows an older run"))
	}
	pidPath := filepath.Join(cfg.Paths.StateDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	components, err := daemon.BuildComponents(cfg, logger, daemon.ComponentOptions{})
	if err != nil {
		logger.Error("build components", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, components, logger)
	if err != nil {
		_ = components.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the container engine is running and the state directory is writable"),
			logging.String(logging.FieldImpact, "no admission or maintenance requests are served"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("encodegate daemon shutting down")
	return nil
}

// ensureCurrentLogPointer points <logDir>/encodegate.log at this run's file.
// The link is relative and swapped in with a rename so readers never see it
// missing.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, currentLogName)
	staging := current + ".next"
	_ = os.Remove(staging)
	if err := os.Symlink(filepath.Base(target), staging); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	if err := os.Rename(staging, current); err != nil {
		_ = os.Remove(staging)
		return fmt.Errorf("replace log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, fmt.Appendf(nil, "%d\n", os.Getpid()), 0o644)
}

func logRuntimeSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	host := strings.TrimSpace(cfg.Runtime.Host)
	if host == "" {
		host = "(DOCKER_HOST or default)"
	}
	logger.Info("runtime snapshot",
		logging.String(logging.FieldEventType, "runtime_snapshot"),
		logging.String("engine_host", host),
		logging.String("worker_image", cfg.Worker.Image),
		logging.String("container_prefix", cfg.Worker.ContainerPrefix),
		logging.Bool("prewarm", cfg.Worker.Prewarm),
		logging.Bool("maintenance_enabled", cfg.Maintenance.Enabled),
		logging.Duration("maintenance_interval", cfg.MaintenanceInterval()),
		logging.Bool("pull_lease_enabled", cfg.PullLease.Enabled),
		logging.Bool("dispatch_enabled", cfg.Dispatch.Enabled),
		logging.String("api_bind", cfg.Paths.APIBind),
	)
}
