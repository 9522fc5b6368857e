package delegate

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// DockerInvoker runs the extractor image in a container per task. The task
// is passed as the single command argument; the result is the last line of
// the container's output.
type DockerInvoker struct {
	client *client.Client

	// Image is the extractor container image.
	Image string

	// Env passed into the container (store root, credentials, etc.).
	Env []string
}

// NewDockerInvoker creates a Docker-backed invoker.
// The client is initialized from standard environment variables (DOCKER_HOST, etc.).
func NewDockerInvoker(img string, env []string) (*DockerInvoker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return &DockerInvoker{client: cli, Image: img, Env: env}, nil
}

// Invoke implements Invoker.
func (d *DockerInvoker) Invoke(ctx context.Context, task Task) (Result, error) {
	if err := task.Validate(); err != nil {
		return Result{}, err
	}

	payload, err := EncodeTask(task)
	if err != nil {
		return Result{}, err
	}

	if _, err := d.client.ImageInspect(ctx, d.Image); err != nil {
		// Not present locally, pull it.
		reader, err := d.client.ImagePull(ctx, d.Image, image.PullOptions{})
		if err != nil {
			return Result{}, fmt.Errorf("failed to pull image %s: %w", d.Image, err)
		}
		defer reader.Close()
		io.Copy(io.Discard, reader)
	}

	cfg := &container.Config{
		Image: d.Image,
		Cmd:   []string{string(payload)},
		Env:   d.Env,
		Tty:   true,
	}
	created, err := d.client.ContainerCreate(ctx, cfg, nil, nil, nil, "")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create container: %w", err)
	}
	defer d.client.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true})

	if err := d.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return Result{}, fmt.Errorf("failed to start container: %w", err)
	}

	waitCh, errCh := d.client.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return Result{}, fmt.Errorf("failed waiting for container: %w", err)
	case status := <-waitCh:
		if status.StatusCode != 0 {
			return Result{}, fmt.Errorf("extractor container exited with %d", status.StatusCode)
		}
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	logs, err := d.client.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return Result{}, fmt.Errorf("failed to read container logs: %w", err)
	}
	defer logs.Close()

	output, err := io.ReadAll(logs)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read container output: %w", err)
	}

	return DecodeResult(lastLine(output))
}

// lastLine returns the last non-empty line; the extractor prints its result
// JSON last, after any log output.
func lastLine(output []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(output), []byte("\n"))
	if len(lines) == 0 {
		return nil
	}
	return bytes.TrimSpace(lines[len(lines)-1])
}
