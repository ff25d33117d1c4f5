package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/redis/go-redis/v9"

	"encodegate/internal/admission"
	"encodegate/internal/config"
	"encodegate/internal/dispatch"
	"encodegate/internal/health"
	"encodegate/internal/provision"
	"encodegate/internal/reaper"
	"encodegate/internal/runtime"
	"encodegate/internal/services"
)

const dispatchPingTimeout = 5 * time.Second

// ErrCleanupBusy is returned when another process holds the cleanup lock.
var ErrCleanupBusy = errors.New("another container cleanup is in progress")

// Components holds the core services built from configuration. The CLI and
// the daemon share it.
type Components struct {
	Validator   *admission.Validator
	Gateway     runtime.Gateway
	Provisioner *provision.Provisioner
	Reaper      *reaper.Reaper
	Checker     *health.Checker
	Publisher   dispatch.Publisher

	cfg   *config.Config
	redis redis.UniversalClient
}

// ComponentOptions customizes component construction.
type ComponentOptions struct {
	// OnProgress is forwarded to the provisioner.
	OnProgress func(image string, p provision.Progress)
	// SkipDispatch leaves the publisher disabled even when configured.
	SkipDispatch bool
}

// NewValidator returns the admission validator selected by cfg.
func NewValidator(cfg *config.Config) *admission.Validator {
	if cfg.Admission.StrictStreamCopy {
		return admission.NewValidator(admission.StreamCopyRules()...)
	}
	return admission.NewValidator()
}

// BuildComponents connects to the configured container engine and builds
// every component.
func BuildComponents(cfg *config.Config, logger *slog.Logger, opts ComponentOptions) (*Components, error) {
	gateway, err := runtime.NewDockerGateway(runtime.DockerOptions{
		Host:       cfg.Runtime.Host,
		APIVersion: cfg.Runtime.APIVersion,
	})
	if err != nil {
		return nil, err
	}
	components, err := NewComponents(cfg, logger, gateway, opts)
	if err != nil {
		_ = gateway.Close()
		return nil, err
	}
	return components, nil
}

// NewComponents builds the components around an existing gateway.
func NewComponents(cfg *config.Config, logger *slog.Logger, gateway runtime.Gateway, opts ComponentOptions) (*Components, error) {
	if cfg == nil || gateway == nil {
		return nil, errors.New("components require config and gateway")
	}
	c := &Components{
		Validator: NewValidator(cfg),
		Gateway:   gateway,
		Reaper:    reaper.New(gateway, logger),
		Checker:   health.New(gateway, logger),
		Publisher: dispatch.Disabled{},
		cfg:       cfg,
	}

	provisionOpts := provision.Options{Logger: logger, OnProgress: opts.OnProgress}
	if cfg.PullLease.Enabled {
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.PullLease.RedisAddr,
			Password: cfg.PullLease.RedisPassword,
			DB:       cfg.PullLease.RedisDB,
		})
		provisionOpts.Lease = provision.NewRedisLease(c.redis, provision.RedisLeaseOptions{
			TTL:  cfg.LeaseTTL(),
			Poll: cfg.LeasePoll(),
		})
	}
	c.Provisioner = provision.New(gateway, provisionOpts)

	if cfg.Dispatch.Enabled && !opts.SkipDispatch {
		publisher, err := dispatch.NewKafkaPublisher(dispatch.KafkaOptions{
			Brokers:      cfg.Dispatch.Brokers,
			Topic:        cfg.Dispatch.Topic,
			WriteTimeout: cfg.DispatchWriteTimeout(),
			Logger:       logger,
		})
		if err != nil {
			_ = c.closeRedis()
			return nil, services.Wrap(services.ErrConfiguration, "daemon", "dispatch", "", err)
		}
		c.Publisher = publisher
	}
	return c, nil
}

// ReadinessOptions derives readiness checks from configuration.
func (c *Components) ReadinessOptions() health.ReadinessOptions {
	host := c.cfg.Runtime.Host
	if docker, ok := c.Gateway.(*runtime.DockerGateway); ok {
		host = docker.Host()
	}
	opts := health.ReadinessOptions{
		Host:        host,
		StateDir:    c.cfg.Paths.StateDir,
		WorkerImage: c.cfg.Worker.Image,
	}
	if c.cfg.Dispatch.Enabled {
		brokers := append([]string(nil), c.cfg.Dispatch.Brokers...)
		opts.Dependencies = append(opts.Dependencies, health.Dependency{
			Name: "Job dispatch",
			Check: func(ctx context.Context) (string, error) {
				ctx, cancel := context.WithTimeout(ctx, dispatchPingTimeout)
				defer cancel()
				if err := dispatch.Ping(ctx, brokers); err != nil {
					return "", err
				}
				return fmt.Sprintf("brokers %s reachable", strings.Join(brokers, ", ")), nil
			},
		})
	}
	return opts
}

// Cleanup runs the reaper while holding the cleanup lock so that manual and
// scheduled runs never overlap. It waits up to wait for the lock; a zero
// wait tries once.
func (c *Components) Cleanup(ctx context.Context, prefix string, wait time.Duration) (reaper.Report, error) {
	lock := flock.New(c.cfg.CleanupLockPath())
	var (
		ok  bool
		err error
	)
	if wait > 0 {
		lockCtx, cancel := context.WithTimeout(ctx, wait)
		ok, err = lock.TryLockContext(lockCtx, 100*time.Millisecond)
		cancel()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = nil
		}
	} else {
		ok, err = lock.TryLock()
	}
	if err != nil {
		return reaper.Report{Prefix: strings.TrimSpace(prefix)}, fmt.Errorf("acquire cleanup lock: %w", err)
	}
	if !ok {
		return reaper.Report{Prefix: strings.TrimSpace(prefix)}, ErrCleanupBusy
	}
	defer func() { _ = lock.Unlock() }()
	return c.Reaper.Cleanup(ctx, prefix)
}

// Close releases the engine connection, the publisher and the Redis client.
func (c *Components) Close() error {
	return errors.Join(c.Publisher.Close(), c.closeRedis(), c.Gateway.Close())
}

func (c *Components) closeRedis() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}
