// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// DockerEngine implements Engine against the Docker daemon API.
type DockerEngine struct {
	cli *client.Client
}

// NewDockerEngine creates a DockerEngine from the environment (DOCKER_HOST
// and friends), negotiating the API version with the daemon.
func NewDockerEngine() (*DockerEngine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &DockerEngine{cli: cli}, nil
}

// Name returns the engine name.
func (e *DockerEngine) Name() string { return "docker" }

// Available pings the daemon.
func (e *DockerEngine) Available(ctx context.Context) error {
	if _, err := e.cli.Ping(ctx); err != nil {
		return &UnavailableError{Engine: e.Name(), Err: err}
	}
	return nil
}

// RunOutput pulls imageRef, runs argv in a fresh container to completion,
// and returns the combined output. The container is force-removed on the
// way out, successful or not.
func (e *DockerEngine) RunOutput(ctx context.Context, imageRef string, argv []string) (string, error) {
	slog.Debug("running command in image", "image", imageRef, "argv", argv)
	if err := e.pull(ctx, imageRef); err != nil {
		return "", fmt.Errorf("pulling %q: %w", imageRef, err)
	}

	created, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image: imageRef,
		Cmd:   argv,
		Tty:   true,
	}, nil, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("creating container for %q: %w", imageRef, err)
	}
	defer func() {
		if rmErr := e.cli.ContainerRemove(context.Background(), created.ID, container.RemoveOptions{Force: true}); rmErr != nil {
			slog.Warn("failed to remove container", "id", shortID(created.ID), "error", rmErr)
		}
	}()

	if err := e.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("starting container %s: %w", shortID(created.ID), err)
	}

	statusCh, errCh := e.cli.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case waitErr := <-errCh:
		if waitErr != nil {
			return "", fmt.Errorf("waiting for container %s: %w", shortID(created.ID), waitErr)
		}
	case status := <-statusCh:
		if status.StatusCode != 0 {
			slog.Debug("command exited nonzero", "image", imageRef, "code", status.StatusCode)
		}
	}

	logs, err := e.cli.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return "", fmt.Errorf("reading logs of %s: %w", shortID(created.ID), err)
	}
	defer logs.Close()

	// The container runs with a tty, so the log stream is raw rather
	// than multiplexed.
	out, err := io.ReadAll(logs)
	if err != nil {
		return "", fmt.Errorf("reading logs of %s: %w", shortID(created.ID), err)
	}
	return string(out), nil
}

// ImageDigest asks the registry for the content-addressed digest of
// imageRef.
func (e *DockerEngine) ImageDigest(ctx context.Context, imageRef string) (string, error) {
	slog.Debug("inspecting image digest", "image", imageRef)
	inspect, err := e.cli.DistributionInspect(ctx, imageRef, "")
	if err != nil {
		return "", fmt.Errorf("inspecting %q: %w", imageRef, err)
	}
	digest := inspect.Descriptor.Digest.String()
	if digest == "" {
		return "", fmt.Errorf("%q has no digest", imageRef)
	}
	return digest, nil
}

func (e *DockerEngine) pull(ctx context.Context, imageRef string) error {
	slog.Debug("pulling image", "image", imageRef)
	rc, err := e.cli.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return err
	}
	defer rc.Close()

	// Drain the progress stream; the pull is complete when it ends.
	_, err = io.Copy(io.Discard, rc)
	return err
}

// shortID truncates a container ID the way the docker CLI presents them.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
