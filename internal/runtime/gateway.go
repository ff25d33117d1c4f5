package runtime

import (
	"context"
	"iter"
	"strings"
)

// Gateway is the narrow view of the container engine used by encodegate.
type Gateway interface {
	Info(ctx context.Context) (EngineInfo, error)
	ListContainers(ctx context.Context, all bool) ([]ContainerRecord, error)
	ListImages(ctx context.Context) ([]ImageRecord, error)
	Pull(ctx context.Context, ref string) (PullStream, error)
	GetContainer(ctx context.Context, id string) (ContainerRecord, error)
	RemoveContainer(ctx context.Context, id string, force bool) error
	Close() error
}

// ContainerState mirrors the engine's reported container status.
type ContainerState string

const (
	StateCreated    ContainerState = "created"
	StateRunning    ContainerState = "running"
	StatePaused     ContainerState = "paused"
	StateRestarting ContainerState = "restarting"
	StateRemoving   ContainerState = "removing"
	StateExited     ContainerState = "exited"
	StateDead       ContainerState = "dead"
)

// ContainerRecord is a point-in-time snapshot of one container.
type ContainerRecord struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Image string         `json:"image"`
	State ContainerState `json:"state"`
}

// Running reports whether the engine considers the container running.
func (c ContainerRecord) Running() bool {
	return c.State == StateRunning
}

// ShortID returns the 12 character form the engine CLI prints.
func (c ContainerRecord) ShortID() string {
	if len(c.ID) > 12 {
		return c.ID[:12]
	}
	return c.ID
}

// ImageRecord describes one locally stored image.
type ImageRecord struct {
	ID      string   `json:"id"`
	Tags    []string `json:"tags"`
	Digests []string `json:"digests"`
	Size    int64    `json:"size"`
}

// EngineInfo is the engine-wide snapshot returned by Info.
type EngineInfo struct {
	Version           string `json:"version"`
	APIVersion        string `json:"apiVersion"`
	OperatingSystem   string `json:"operatingSystem,omitempty"`
	Containers        int    `json:"containers"`
	ContainersRunning int    `json:"containersRunning"`
	ContainersPaused  int    `json:"containersPaused"`
	ContainersStopped int    `json:"containersStopped"`
	Images            int    `json:"images"`
}

// PullEvent is one progress message from an image pull.
type PullEvent struct {
	ID      string `json:"id,omitempty"`
	Status  string `json:"status,omitempty"`
	Current int64  `json:"current,omitempty"`
	Total   int64  `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

// PullStream is a finite, ordered sequence of pull events. Callers must
// drain Events or call Close.
type PullStream interface {
	Events() iter.Seq2[PullEvent, error]
	Close() error
}

func containerName(names []string) string {
	for _, name := range names {
		if trimmed := strings.TrimPrefix(strings.TrimSpace(name), "/"); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
