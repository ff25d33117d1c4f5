package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// DockerOptions configures the engine connection.
type DockerOptions struct {
	// Host overrides DOCKER_HOST, e.g. "unix:///var/run/docker.sock".
	Host string
	// APIVersion pins the API version. Empty negotiates with the daemon.
	APIVersion string
}

var _ Gateway = (*DockerGateway)(nil)

// DockerGateway is a Gateway backed by the Docker Engine API.
type DockerGateway struct {
	cli  *client.Client
	host string
}

// NewDockerGateway builds a client from the environment plus opts. It does not
// contact the engine; the first call does.
func NewDockerGateway(opts DockerOptions) (*DockerGateway, error) {
	clientOpts := []client.Opt{client.FromEnv}
	if host := strings.TrimSpace(opts.Host); host != "" {
		clientOpts = append(clientOpts, client.WithHost(host))
	}
	if version := strings.TrimSpace(opts.APIVersion); version != "" {
		clientOpts = append(clientOpts, client.WithVersion(version))
	} else {
		clientOpts = append(clientOpts, client.WithAPIVersionNegotiation())
	}
	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &DockerGateway{cli: cli, host: cli.DaemonHost()}, nil
}

// Host returns the engine endpoint in use.
func (g *DockerGateway) Host() string {
	return g.host
}

func (g *DockerGateway) Info(ctx context.Context) (EngineInfo, error) {
	info, err := g.cli.Info(ctx)
	if err != nil {
		return EngineInfo{}, classify("info", err)
	}
	result := EngineInfo{
		Version:           info.ServerVersion,
		OperatingSystem:   info.OperatingSystem,
		Containers:        info.Containers,
		ContainersRunning: info.ContainersRunning,
		ContainersPaused:  info.ContainersPaused,
		ContainersStopped: info.ContainersStopped,
		Images:            info.Images,
	}
	version, err := g.cli.ServerVersion(ctx)
	if err != nil {
		return EngineInfo{}, classify("version", err)
	}
	result.APIVersion = version.APIVersion
	return result, nil
}

func (g *DockerGateway) ListContainers(ctx context.Context, all bool) ([]ContainerRecord, error) {
	containers, err := g.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, classify("list containers", err)
	}
	records := make([]ContainerRecord, 0, len(containers))
	for _, c := range containers {
		records = append(records, ContainerRecord{
			ID:    c.ID,
			Name:  containerName(c.Names),
			Image: c.Image,
			State: ContainerState(c.State),
		})
	}
	return records, nil
}

func (g *DockerGateway) ListImages(ctx context.Context) ([]ImageRecord, error) {
	images, err := g.cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, classify("list images", err)
	}
	records := make([]ImageRecord, 0, len(images))
	for _, img := range images {
		records = append(records, ImageRecord{
			ID:      img.ID,
			Tags:    img.RepoTags,
			Digests: img.RepoDigests,
			Size:    img.Size,
		})
	}
	return records, nil
}

func (g *DockerGateway) Pull(ctx context.Context, ref string) (PullStream, error) {
	body, err := g.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return nil, classify("pull", err)
	}
	return NewPullStream(body), nil
}

func (g *DockerGateway) GetContainer(ctx context.Context, id string) (ContainerRecord, error) {
	inspected, err := g.cli.ContainerInspect(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return ContainerRecord{}, fmt.Errorf("%w: %s", ErrContainerNotFound, id)
		}
		return ContainerRecord{}, classify("inspect container", err)
	}
	record := ContainerRecord{ID: id}
	if inspected.ContainerJSONBase != nil {
		record.ID = inspected.ID
		record.Name = strings.TrimPrefix(inspected.Name, "/")
		record.Image = inspected.Image
		if inspected.State != nil {
			// Paused and restarting containers also report Running; Status
			// is the same field ListContainers exposes.
			record.State = ContainerState(inspected.State.Status)
		}
	}
	if inspected.Config != nil && inspected.Config.Image != "" {
		record.Image = inspected.Config.Image
	}
	return record, nil
}

func (g *DockerGateway) RemoveContainer(ctx context.Context, id string, force bool) error {
	err := g.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: force})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrContainerNotFound, id)
		}
		return classify("remove container", err)
	}
	return nil
}

func (g *DockerGateway) Close() error {
	return g.cli.Close()
}
