package testsupport

import (
	"context"
	"io"
	"strings"
	"sync"

	"encodegate/internal/runtime"
)

var _ runtime.Gateway = (*FakeGateway)(nil)

// FakeGateway is an in-memory container engine. Set the exported fields
// before handing it to the code under test.
type FakeGateway struct {
	mu sync.Mutex

	Images     []runtime.ImageRecord
	Containers []runtime.ContainerRecord
	// InfoErr fails Info, and therefore health checks, when set.
	InfoErr error
	// PullErr fails Pull when set.
	PullErr error

	pulls   int
	removed []string
}

func (f *FakeGateway) Info(context.Context) (runtime.EngineInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InfoErr != nil {
		return runtime.EngineInfo{}, f.InfoErr
	}
	info := runtime.EngineInfo{
		Version:    "27.5.1",
		APIVersion: "1.47",
		Containers: len(f.Containers),
		Images:     len(f.Images),
	}
	for _, c := range f.Containers {
		switch c.State {
		case runtime.StateRunning:
			info.ContainersRunning++
		case runtime.StatePaused:
			info.ContainersPaused++
		default:
			info.ContainersStopped++
		}
	}
	return info, nil
}

func (f *FakeGateway) ListContainers(context.Context, bool) ([]runtime.ContainerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runtime.ContainerRecord(nil), f.Containers...), nil
}

func (f *FakeGateway) ListImages(context.Context) ([]runtime.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runtime.ImageRecord(nil), f.Images...), nil
}

// Pull records the image as present and streams a short successful pull.
func (f *FakeGateway) Pull(_ context.Context, ref string) (runtime.PullStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls++
	if f.PullErr != nil {
		return nil, f.PullErr
	}
	f.Images = append(f.Images, runtime.ImageRecord{ID: "sha256:pulled", Tags: []string{ref}})
	body := `{"status":"Pulling fs layer","id":"a1"}
{"status":"Downloading","id":"a1","progressDetail":{"current":512,"total":1024}}
{"status":"Pull complete","id":"a1"}
{"status":"Status: Downloaded newer image for ` + ref + `"}`
	return runtime.NewPullStream(io.NopCloser(strings.NewReader(body))), nil
}

func (f *FakeGateway) GetContainer(_ context.Context, id string) (runtime.ContainerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Containers {
		if c.ID == id {
			return c, nil
		}
	}
	return runtime.ContainerRecord{}, runtime.ErrContainerNotFound
}

func (f *FakeGateway) RemoveContainer(_ context.Context, id string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := make([]runtime.ContainerRecord, 0, len(f.Containers))
	found := false
	for _, c := range f.Containers {
		if c.ID == id {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return runtime.ErrContainerNotFound
	}
	f.Containers = kept
	f.removed = append(f.removed, id)
	return nil
}

func (f *FakeGateway) Close() error { return nil }

// Pulls reports how many pulls were started.
func (f *FakeGateway) Pulls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulls
}

// Removed returns the ids removed so far, in order.
func (f *FakeGateway) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

// RemainingContainers returns the containers still present.
func (f *FakeGateway) RemainingContainers() []runtime.ContainerRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runtime.ContainerRecord(nil), f.Containers...)
}
