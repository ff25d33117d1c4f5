package provision

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"encodegate/internal/runtime"
	"encodegate/internal/services"
)

type fakeGateway struct {
	mu      sync.Mutex
	images  []runtime.ImageRecord
	pulls   atomic.Int32
	lists   atomic.Int32
	listErr error
	pullFn  func(ctx context.Context, ref string) (runtime.PullStream, error)
}

func (f *fakeGateway) Info(context.Context) (runtime.EngineInfo, error) {
	return runtime.EngineInfo{}, nil
}

func (f *fakeGateway) ListContainers(context.Context, bool) ([]runtime.ContainerRecord, error) {
	return nil, nil
}

func (f *fakeGateway) ListImages(context.Context) ([]runtime.ImageRecord, error) {
	f.lists.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runtime.ImageRecord(nil), f.images...), nil
}

func (f *fakeGateway) Pull(ctx context.Context, ref string) (runtime.PullStream, error) {
	f.pulls.Add(1)
	if f.pullFn != nil {
		return f.pullFn(ctx, ref)
	}
	return runtime.NewPullStream(io.NopCloser(strings.NewReader(`{"status":"done"}`))), nil
}

func (f *fakeGateway) GetContainer(context.Context, string) (runtime.ContainerRecord, error) {
	return runtime.ContainerRecord{}, runtime.ErrContainerNotFound
}

func (f *fakeGateway) RemoveContainer(context.Context, string, bool) error { return nil }

func (f *fakeGateway) Close() error { return nil }

func (f *fakeGateway) addImage(tag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, runtime.ImageRecord{ID: "sha256:" + tag, Tags: []string{tag}})
}

// cancellableStream blocks until ctx ends and then reports its error.
type cancellableStream struct {
	ctx context.Context
}

func (s *cancellableStream) Events() iter.Seq2[runtime.PullEvent, error] {
	return func(yield func(runtime.PullEvent, error) bool) {
		<-s.ctx.Done()
		yield(runtime.PullEvent{}, s.ctx.Err())
	}
}

func (s *cancellableStream) Close() error { return nil }

// blockingStream yields nothing until release is closed.
type blockingStream struct {
	release <-chan struct{}
	onDone  func()
}

func (s *blockingStream) Events() iter.Seq2[runtime.PullEvent, error] {
	return func(yield func(runtime.PullEvent, error) bool) {
		<-s.release
		if s.onDone != nil {
			s.onDone()
		}
		yield(runtime.PullEvent{Status: "Status: Downloaded newer image"}, nil)
	}
}

func (s *blockingStream) Close() error { return nil }

func TestEnsureImagePresentSkipsPull(t *testing.T) {
	gw := &fakeGateway{}
	gw.addImage("docker.io/library/worker:latest")
	p := New(gw, Options{})

	for i := 0; i < 2; i++ {
		result, err := p.EnsureImage(context.Background(), "worker")
		if err != nil {
			t.Fatalf("EnsureImage: %v", err)
		}
		if result.Outcome != OutcomePresent || result.Image != "worker:latest" {
			t.Fatalf("unexpected result %+v", result)
		}
	}
	if gw.pulls.Load() != 0 {
		t.Fatalf("pulls = %d, want 0", gw.pulls.Load())
	}
	if gw.lists.Load() != 2 {
		t.Fatalf("presence must be checked on every call, lists = %d", gw.lists.Load())
	}
}

func TestEnsureImagePullsOnceThenPresent(t *testing.T) {
	gw := &fakeGateway{}
	gw.pullFn = func(_ context.Context, ref string) (runtime.PullStream, error) {
		if ref != "docker.io/acme/encoder:2" {
			t.Errorf("pull ref = %q", ref)
		}
		gw.addImage("acme/encoder:2")
		return runtime.NewPullStream(io.NopCloser(strings.NewReader(
			`{"status":"Downloading","id":"l1","progressDetail":{"current":50,"total":100}}` + "\n" +
				`{"status":"Downloading","id":"l2","progressDetail":{"current":10,"total":300}}` + "\n" +
				`{"status":"Pull complete","id":"l1"}` + "\n",
		))), nil
	}
	var progress []Progress
	p := New(gw, Options{OnProgress: func(image string, pr Progress) {
		if image != "acme/encoder:2" {
			t.Errorf("progress image = %q", image)
		}
		progress = append(progress, pr)
	}})

	first, err := p.EnsureImage(context.Background(), "acme/encoder:2")
	if err != nil {
		t.Fatalf("first EnsureImage: %v", err)
	}
	if first.Outcome != OutcomePulled {
		t.Fatalf("first outcome = %s, want pulled", first.Outcome)
	}
	second, err := p.EnsureImage(context.Background(), "docker.io/acme/encoder:2")
	if err != nil {
		t.Fatalf("second EnsureImage: %v", err)
	}
	if second.Outcome != OutcomePresent {
		t.Fatalf("second outcome = %s, want present", second.Outcome)
	}
	if gw.pulls.Load() != 1 {
		t.Fatalf("pulls = %d, want 1", gw.pulls.Load())
	}

	if len(progress) != 3 {
		t.Fatalf("progress callbacks = %d, want 3", len(progress))
	}
	final := progress[len(progress)-1]
	if final.Layers != 2 || final.Done != 1 || final.Total != 400 || final.Current != 110 {
		t.Fatalf("final progress = %+v", final)
	}
}

func TestEnsureImageSharesConcurrentPull(t *testing.T) {
	gw := &fakeGateway{}
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	gw.pullFn = func(context.Context, string) (runtime.PullStream, error) {
		once.Do(func() { close(started) })
		return &blockingStream{release: release, onDone: func() { gw.addImage("worker:latest") }}, nil
	}
	p := New(gw, Options{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Result, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.EnsureImage(context.Background(), "worker:latest")
		}(i)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("pull never started")
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
		if results[i].Image != "worker:latest" {
			t.Fatalf("caller %d: result %+v", i, results[i])
		}
	}
	if gw.pulls.Load() != 1 {
		t.Fatalf("pulls = %d, want exactly one shared pull", gw.pulls.Load())
	}
}

func TestEnsureImagePullFailure(t *testing.T) {
	gw := &fakeGateway{}
	gw.pullFn = func(context.Context, string) (runtime.PullStream, error) {
		return runtime.NewPullStream(io.NopCloser(strings.NewReader(
			`{"errorDetail":{"message":"pull access denied"},"error":"pull access denied"}`,
		))), nil
	}
	p := New(gw, Options{})

	_, err := p.EnsureImage(context.Background(), "private/encoder")
	if !errors.Is(err, services.ErrProvision) {
		t.Fatalf("expected provision error, got %v", err)
	}
	var pullErr *runtime.PullError
	if !errors.As(err, &pullErr) || pullErr.Message != "pull access denied" {
		t.Fatalf("expected underlying pull error, got %v", err)
	}
	if status := services.HTTPStatus(err); status != http.StatusBadGateway {
		t.Fatalf("HTTPStatus = %d, want 502", status)
	}
}

func TestEnsureImageRuntimeUnavailable(t *testing.T) {
	gw := &fakeGateway{listErr: services.Wrap(services.ErrRuntimeUnavailable, "runtime", "list images", "", errors.New("dial unix: connection refused"))}
	p := New(gw, Options{})

	_, err := p.EnsureImage(context.Background(), "worker")
	if !errors.Is(err, services.ErrRuntimeUnavailable) {
		t.Fatalf("expected runtime unavailable, got %v", err)
	}
	if status := services.HTTPStatus(err); status != http.StatusServiceUnavailable {
		t.Fatalf("HTTPStatus = %d, want 503", status)
	}
	if gw.pulls.Load() != 0 {
		t.Fatal("no pull may start when the engine is unreachable")
	}
}

func TestEnsureImageInvalidName(t *testing.T) {
	gw := &fakeGateway{}
	p := New(gw, Options{})
	_, err := p.EnsureImage(context.Background(), "Bad Name!")
	if !errors.Is(err, services.ErrSchema) || errors.Is(err, services.ErrProvision) {
		t.Fatalf("expected schema error, got %v", err)
	}
	if status := services.HTTPStatus(err); status != http.StatusBadRequest {
		t.Fatalf("HTTPStatus = %d, want 400", status)
	}
	if gw.lists.Load() != 0 {
		t.Fatal("an invalid name must not reach the engine")
	}
}

type fakeLease struct {
	acquired []string
	released int
	onAcquire func()
}

func (l *fakeLease) Acquire(_ context.Context, key string) (func(context.Context) error, error) {
	l.acquired = append(l.acquired, key)
	if l.onAcquire != nil {
		l.onAcquire()
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

func TestEnsureImageRechecksAfterLease(t *testing.T) {
	gw := &fakeGateway{}
	lease := &fakeLease{onAcquire: func() { gw.addImage("worker:latest") }}
	p := New(gw, Options{Lease: lease})

	result, err := p.EnsureImage(context.Background(), "worker")
	if err != nil {
		t.Fatalf("EnsureImage: %v", err)
	}
	if result.Outcome != OutcomePresent {
		t.Fatalf("outcome = %s, want present after another replica pulled", result.Outcome)
	}
	if gw.pulls.Load() != 0 {
		t.Fatalf("pulls = %d, want 0", gw.pulls.Load())
	}
	if len(lease.acquired) != 1 || lease.acquired[0] != "worker:latest" || lease.released != 1 {
		t.Fatalf("lease usage acquired=%v released=%d", lease.acquired, lease.released)
	}
}

func TestEnsureImageCancelledWhileWaiting(t *testing.T) {
	gw := &fakeGateway{}
	release := make(chan struct{})
	started := make(chan struct{})
	gw.pullFn = func(context.Context, string) (runtime.PullStream, error) {
		close(started)
		return &blockingStream{release: release}, nil
	}
	p := New(gw, Options{})

	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, _ = p.EnsureImage(context.Background(), "worker")
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.EnsureImage(ctx, "worker"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	close(release)
	<-leaderDone
}

func TestEnsureImageSurvivesLeaderCancellation(t *testing.T) {
	gw := &fakeGateway{}
	release := make(chan struct{})
	started := make(chan struct{})
	gw.pullFn = func(context.Context, string) (runtime.PullStream, error) {
		close(started)
		return &blockingStream{release: release, onDone: func() { gw.addImage("worker:latest") }}, nil
	}
	p := New(gw, Options{})

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := p.EnsureImage(leaderCtx, "worker")
		leaderErr <- err
	}()
	<-started

	followerDone := make(chan struct{})
	var follower Result
	var followerErr error
	go func() {
		defer close(followerDone)
		follower, followerErr = p.EnsureImage(context.Background(), "worker")
	}()
	waitForWaiters(t, p, "worker:latest", 2)

	cancelLeader()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("leader err = %v, want cancellation", err)
	}
	close(release)
	<-followerDone

	if followerErr != nil {
		t.Fatalf("follower must still get the pull result, got %v", followerErr)
	}
	if follower.Outcome != OutcomePulled || !follower.Shared {
		t.Fatalf("follower result = %+v", follower)
	}
	if gw.pulls.Load() != 1 {
		t.Fatalf("pulls = %d, want 1", gw.pulls.Load())
	}
}

func TestEnsureImageCancelsPullWhenEveryCallerLeaves(t *testing.T) {
	gw := &fakeGateway{}
	pullCancelled := make(chan struct{})
	gw.pullFn = func(ctx context.Context, _ string) (runtime.PullStream, error) {
		go func() {
			<-ctx.Done()
			close(pullCancelled)
		}()
		return &cancellableStream{ctx: ctx}, nil
	}
	p := New(gw, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := p.EnsureImage(ctx, "worker")
			errs <- err
		}()
	}
	waitForWaiters(t, p, "worker:latest", 2)
	cancel()
	for i := 0; i < 2; i++ {
		if err := <-errs; !errors.Is(err, context.Canceled) {
			t.Fatalf("caller err = %v, want cancellation", err)
		}
	}

	select {
	case <-pullCancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("pull kept running after every caller left")
	}
}

func TestEnsureImageReleasesRegistryAfterPanic(t *testing.T) {
	gw := &fakeGateway{}
	gw.pullFn = func(context.Context, string) (runtime.PullStream, error) {
		return runtime.NewPullStream(io.NopCloser(strings.NewReader(`{"status":"Downloading","id":"l1"}`))), nil
	}
	var calls atomic.Int32
	p := New(gw, Options{OnProgress: func(string, Progress) {
		if calls.Add(1) == 1 {
			panic("progress sink closed")
		}
	}})

	if _, err := p.EnsureImage(context.Background(), "worker"); !errors.Is(err, services.ErrProvision) {
		t.Fatalf("expected provision error from panicking callback, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := p.EnsureImage(ctx, "worker")
	if err != nil {
		t.Fatalf("second EnsureImage: %v", err)
	}
	if result.Outcome != OutcomePulled || result.Shared {
		t.Fatalf("second result = %+v", result)
	}
}

func waitForWaiters(t *testing.T, p *Provisioner, key string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		call, ok := p.pending[key]
		n := 0
		if ok {
			n = call.waiters
		}
		p.mu.Unlock()
		if n == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("never saw %d callers waiting on %s", want, key)
}
