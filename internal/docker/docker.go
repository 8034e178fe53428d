package docker

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// ContainerState is the runtime view of one container.
type ContainerState int

const (
	StateAbsent ContainerState = iota
	StateStopped
	StateRunning
)

func (s ContainerState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "absent"
	}
}

// Summary is a lightweight view of a listed container.
type Summary struct {
	Name   string
	Image  string
	State  string
	Labels map[string]string
}

// Client is the narrow container-runtime surface the lifecycle commands
// need. The real implementation wraps the Docker SDK; tests use a fake.
type Client interface {
	State(ctx context.Context, name string) (ContainerState, error)
	ForceRemove(ctx context.Context, name string) error
	List(ctx context.Context) ([]Summary, error)
}

type sdkClient struct {
	cli *client.Client
}

// NewClient connects to the local Docker daemon using the environment's
// settings.
func NewClient() (Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &sdkClient{cli: cli}, nil
}

func (c *sdkClient) State(ctx context.Context, name string) (ContainerState, error) {
	inspect, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return StateAbsent, nil
		}
		return StateAbsent, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	if inspect.State != nil && inspect.State.Running {
		return StateRunning, nil
	}
	return StateStopped, nil
}

// ForceRemove stops and removes the container. A missing container is
// already satisfied, not an error.
func (c *sdkClient) ForceRemove(ctx context.Context, name string) error {
	err := c.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to remove container %s: %w", name, err)
	}
	return nil
}

func (c *sdkClient) List(ctx context.Context) ([]Summary, error) {
	containers, err := c.cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	summaries := make([]Summary, 0, len(containers))
	for _, ctr := range containers {
		name := ""
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}
		summaries = append(summaries, Summary{
			Name:   name,
			Image:  ctr.Image,
			State:  ctr.State,
			Labels: ctr.Labels,
		})
	}
	return summaries, nil
}
