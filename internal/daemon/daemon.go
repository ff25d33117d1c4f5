package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"encodegate/internal/api"
	"encodegate/internal/config"
	"encodegate/internal/logging"
	"encodegate/internal/reaper"
	"encodegate/internal/services"
)

const (
	startupCheckTimeout = 15 * time.Second
	apiCleanupLockWait  = 30 * time.Second
)

// Daemon serves the HTTP API and runs background maintenance. It enforces
// single-instance execution per state directory.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	components *Components

	lockPath string
	lock     *flock.Flock
	server   *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu          sync.Mutex
	lastCleanup CleanupSummary
}

// CleanupSummary describes the most recent maintenance pass.
type CleanupSummary struct {
	At       time.Time
	Removed  int
	Failures int
	Err      error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	LockFilePath string
	APIAddress   string
	LastCleanup  CleanupSummary
}

// New constructs a daemon around already built components.
func New(cfg *config.Config, components *Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || components == nil {
		return nil, errors.New("daemon requires config and components")
	}
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		components: components,
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}

	handler, err := api.NewServer(api.Dependencies{
		Validator:     components.Validator,
		Publisher:     components.Publisher,
		Provisioner:   components.Provisioner,
		Reaper:        lockedCleaner{components},
		Checker:       components.Checker,
		Readiness:     components.ReadinessOptions(),
		DefaultImage:  cfg.Worker.Image,
		DefaultPrefix: cfg.Worker.ContainerPrefix,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	d.server = newAPIServer(cfg.Paths.APIBind, handler.Handler(), logger)
	return d, nil
}

// Start acquires the daemon lock, verifies the container engine and launches
// the API server and background work.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another encodegated instance is already running")
	}

	checkCtx, cancelCheck := context.WithTimeout(ctx, startupCheckTimeout)
	engine, err := d.components.Checker.CheckConnection(checkCtx)
	cancelCheck()
	if err != nil {
		_ = d.lock.Unlock()
		return services.Wrap(services.ErrRuntimeUnavailable, "daemon", "startup", "container engine check failed", err)
	}
	d.logger.Info("container engine reachable",
		logging.String("version", engine.Version),
		logging.String("api_version", engine.APIVersion),
		logging.Int("containers", engine.ContainerCount),
		logging.Int("running", engine.RunningCount))

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel

	if d.cfg.Worker.Prewarm {
		d.goBackground(func() { d.prewarm(runCtx) })
	}
	if d.cfg.Maintenance.Enabled {
		d.goBackground(func() { d.maintenanceLoop(runCtx) })
	}

	d.running.Store(true)
	d.logger.Info("encodegate daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.address()))
	return nil
}

// Stop stops background work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("encodegate daemon stopped")
}

// Close stops the daemon and releases the components.
func (d *Daemon) Close() error {
	d.Stop()
	return d.components.Close()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	last := d.lastCleanup
	d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
		APIAddress:   d.server.address(),
		LastCleanup:  last,
	}
}

func (d *Daemon) goBackground(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

func (d *Daemon) prewarm(ctx context.Context) {
	image := d.cfg.Worker.Image
	result, err := d.components.Provisioner.EnsureImage(ctx, image)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(d.logger, "worker image prewarm failed", "prewarm_failed",
			logging.String(logging.FieldImage, image),
			logging.Error(err),
			logging.String(logging.FieldImpact, "first job will pull the image"),
			logging.String(logging.FieldErrorHint, "run encodegate image ensure to see the pull error"))
		return
	}
	d.logger.Info("worker image ready",
		logging.String(logging.FieldImage, result.Image),
		logging.String("outcome", string(result.Outcome)))
}

// lockedCleaner serializes API cleanups with the maintenance loop and CLI.
type lockedCleaner struct {
	components *Components
}

func (l lockedCleaner) Cleanup(ctx context.Context, prefix string) (reaper.Report, error) {
	return l.components.Cleanup(ctx, prefix, apiCleanupLockWait)
}
