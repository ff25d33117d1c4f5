package provision

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"encodegate/internal/logging"
	"encodegate/internal/metrics"
	"encodegate/internal/runtime"
	"encodegate/internal/services"
)

// Outcome reports what EnsureImage had to do.
type Outcome string

const (
	OutcomePresent Outcome = "present"
	OutcomePulled  Outcome = "pulled"
)

// Result is the successful result of EnsureImage.
type Result struct {
	Image   string  `json:"image"`
	Outcome Outcome `json:"outcome"`
	// Shared is set when the caller waited on a pull started by another caller.
	Shared bool `json:"shared,omitempty"`
}

// Options configures optional provisioner behaviour.
type Options struct {
	Logger *slog.Logger
	// Lease, when non-nil, serializes pulls of the same image across processes.
	Lease Lease
	// OnProgress receives aggregated pull progress. It runs on the pulling
	// goroutine and must not block.
	OnProgress func(image string, p Progress)
}

type inflight struct {
	done    chan struct{}
	cancel  context.CancelFunc
	waiters int
	result  Result
	err     error
}

// Provisioner ensures worker images exist on the engine.
type Provisioner struct {
	gateway runtime.Gateway
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*inflight
}

// New builds a Provisioner around gateway.
func New(gateway runtime.Gateway, opts Options) *Provisioner {
	return &Provisioner{
		gateway: gateway,
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "provision"),
		pending: make(map[string]*inflight),
	}
}

// EnsureImage makes sure name is available locally, pulling it when absent.
// Concurrent callers for the same image share one pull, which is cancelled
// only once every caller waiting on it has gone. An unparsable name carries
// services.ErrSchema; other errors carry services.ErrProvision, and engine
// outages additionally match services.ErrRuntimeUnavailable.
func (p *Provisioner) EnsureImage(ctx context.Context, name string) (Result, error) {
	ref, err := runtime.ParseImage(name)
	if err != nil {
		metrics.ImageEnsureTotal.WithLabelValues("error").Inc()
		return Result{}, services.Wrap(services.ErrSchema, "provision", "normalize image", "", err)
	}
	key := ref.String()
	ctx = services.WithImage(ctx, key)

	p.mu.Lock()
	call, shared := p.pending[key]
	if !shared {
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		call = &inflight{done: make(chan struct{}), cancel: cancel}
		p.pending[key] = call
		go p.run(runCtx, key, ref, call)
	}
	call.waiters++
	p.mu.Unlock()

	return p.wait(ctx, key, call, shared)
}

// run performs the shared ensure. The registry entry is always released, so
// a panicking progress callback cannot strand later callers.
func (p *Provisioner) run(ctx context.Context, key string, ref runtime.ImageRef, call *inflight) {
	defer func() {
		if recovered := recover(); recovered != nil {
			call.result = Result{}
			call.err = services.Wrap(services.ErrProvision, "provision", "ensure", key, fmt.Errorf("panic: %v", recovered))
			logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "image ensure panicked", "image_ensure_panic",
				logging.Error(call.err))
		}
		p.mu.Lock()
		if p.pending[key] == call {
			delete(p.pending, key)
		}
		p.mu.Unlock()
		call.cancel()
		close(call.done)
	}()
	call.result, call.err = p.ensure(ctx, ref)

	outcome := string(call.result.Outcome)
	if call.err != nil {
		outcome = "error"
	}
	metrics.ImageEnsureTotal.WithLabelValues(outcome).Inc()
}

func (p *Provisioner) wait(ctx context.Context, key string, call *inflight, shared bool) (Result, error) {
	if shared {
		logging.WithContext(ctx, p.logger).Debug("waiting on in-flight pull")
	}
	select {
	case <-call.done:
	case <-ctx.Done():
		p.leave(key, call)
		return Result{}, services.Wrap(services.ErrProvision, "provision", "wait for pull", "", ctx.Err())
	}
	if call.err != nil {
		return Result{}, call.err
	}
	result := call.result
	if shared {
		metrics.ImageEnsureTotal.WithLabelValues("shared").Inc()
		result.Shared = true
	}
	return result, nil
}

// leave drops one waiter. The last one out cancels the pull and unregisters
// it so that a later caller starts afresh.
func (p *Provisioner) leave(key string, call *inflight) {
	p.mu.Lock()
	call.waiters--
	last := call.waiters == 0
	if last && p.pending[key] == call {
		delete(p.pending, key)
	}
	p.mu.Unlock()
	if last {
		call.cancel()
	}
}

func (p *Provisioner) ensure(ctx context.Context, ref runtime.ImageRef) (Result, error) {
	logger := logging.WithContext(ctx, p.logger)
	key := ref.String()

	present, err := p.present(ctx, ref)
	if err != nil {
		return Result{}, err
	}
	if present {
		logger.Debug("image present", logging.String("decision", "skip pull"))
		return Result{Image: key, Outcome: OutcomePresent}, nil
	}

	if p.opts.Lease != nil {
		release, err := p.opts.Lease.Acquire(ctx, key)
		if err != nil {
			return Result{}, services.Wrap(services.ErrProvision, "provision", "acquire pull lease", key, err)
		}
		defer func() {
			// The lease expires on its own if release fails.
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logging.WarnWithContext(logger, "pull lease release failed", "pull_lease_release_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check redis connectivity"),
					logging.String(logging.FieldImpact, "other replicas wait for the lease TTL"))
			}
		}()
		// Another replica may have finished the pull while we waited.
		present, err = p.present(ctx, ref)
		if err != nil {
			return Result{}, err
		}
		if present {
			logger.Info("image pulled by another replica")
			return Result{Image: key, Outcome: OutcomePresent}, nil
		}
	}

	if err := p.pull(ctx, ref); err != nil {
		return Result{}, err
	}
	return Result{Image: key, Outcome: OutcomePulled}, nil
}

func (p *Provisioner) present(ctx context.Context, ref runtime.ImageRef) (bool, error) {
	images, err := p.gateway.ListImages(ctx)
	if err != nil {
		return false, services.Wrap(services.ErrProvision, "provision", "list images", "", err)
	}
	_, ok := runtime.FindImage(images, ref)
	return ok, nil
}

func (p *Provisioner) pull(ctx context.Context, ref runtime.ImageRef) error {
	logger := logging.WithContext(ctx, p.logger)
	key := ref.String()
	logger.Info("pulling image")

	metrics.ImagePullsInFlight.Inc()
	defer metrics.ImagePullsInFlight.Dec()
	start := time.Now()

	stream, err := p.gateway.Pull(ctx, ref.PullRef())
	if err != nil {
		return services.Wrap(services.ErrProvision, "provision", "pull", key, err)
	}

	tracker := newProgressTracker()
	sampler := logging.NewProgressSampler(10)
	var last Progress
	err = runtime.Drain(stream, func(event runtime.PullEvent) {
		last = tracker.observe(event)
		if p.opts.OnProgress != nil {
			p.opts.OnProgress(key, last)
		}
		if sampler.ShouldLogBytes(last.Current, last.Total, last.Status) {
			logger.Debug("pull progress",
				logging.String("status", last.Status),
				logging.Int("layers", last.Layers),
				logging.Bytes("downloaded", last.Current),
				logging.Bytes("size", last.Total))
		}
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		logging.ErrorWithContext(logger, "image pull failed", "image_pull_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the image name and registry credentials"))
		return services.Wrap(services.ErrProvision, "provision", "pull", fmt.Sprintf("pull %s", key), err)
	}

	elapsed := time.Since(start)
	metrics.ImagePullDuration.Observe(elapsed.Seconds())
	metrics.ImagePullBytes.Add(float64(last.Current))
	logger.Info("image pulled",
		logging.Duration("elapsed", elapsed),
		logging.Int("layers", last.Layers),
		logging.Bytes("downloaded", last.Current))
	return nil
}
