package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	dockerExecutorLabel = "docker"
	defaultWorkingDir   = "/workspace"
)

// DockerExecutor runs programs inside network-less, resource-limited containers.
type DockerExecutor struct {
	client *client.Client
	cfg    Config
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewDockerExecutor constructs a Docker backed executor.
func NewDockerExecutor(cfg Config) (*DockerExecutor, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	if cfg.WorkingDir == "" {
		cfg.WorkingDir = defaultWorkingDir
	}

	return &DockerExecutor{
		client: cli,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/forge/pkg/sandbox"),
		logger: cfg.Logger.With().Str("component", "sandbox.docker").Logger(),
	}, nil
}

// Run executes the program in a fresh container of the runtime's image with the workspace bind-mounted.
func (e *DockerExecutor) Run(parent context.Context, program Program) (Result, error) {
	workspace, runtime, cleanup, err := prepareWorkspace(e.cfg.TempDir, program)
	if err != nil {
		execFailures.WithLabelValues(dockerExecutorLabel, RuntimeFor(program.Language).Language).Inc()
		return Result{}, err
	}
	defer cleanup()

	labels := []string{dockerExecutorLabel, runtime.Language}

	ctx, span := e.tracer.Start(parent, "sandbox.docker.run", trace.WithAttributes(
		attribute.String("docker.image", runtime.Image),
		attribute.String("sandbox.language", runtime.Language),
	))
	defer span.End()

	timeout := resolveTimeout(program.Timeout, e.cfg.Timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:    e.cfg.MemoryLimitMB * 1024 * 1024,
			CPUShares: e.cfg.CPUShares,
		},
		NetworkMode: "none",
		Mounts: []mount.Mount{{
			Type:     mount.TypeBind,
			Source:   workspace,
			Target:   e.cfg.WorkingDir,
			ReadOnly: true,
		}},
	}

	config := &container.Config{
		Image:           runtime.Image,
		Cmd:             runtime.Command,
		WorkingDir:      e.cfg.WorkingDir,
		AttachStdout:    true,
		AttachStderr:    true,
		NetworkDisabled: true,
	}

	start := time.Now()
	result := Result{}

	resp, err := e.client.ContainerCreate(ctx, config, hostCfg, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		execFailures.WithLabelValues(labels...).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("container create: %w", err)
	}

	containerID := resp.ID
	defer func() {
		removeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.client.ContainerRemove(removeCtx, containerID, container.RemoveOptions{Force: true}); err != nil {
			e.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to remove container")
		}
	}()

	if err := e.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		execFailures.WithLabelValues(labels...).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, fmt.Errorf("container start: %w", err)
	}

	exitCode, waitErr := e.await(ctx, containerID)
	result.ExitCode = exitCode
	result.Duration = time.Since(start)
	execDuration.WithLabelValues(labels...).Observe(result.Duration.Seconds())

	switch {
	case waitErr == nil:
	case errors.Is(waitErr, context.DeadlineExceeded):
		result.TimedOut = true
		execTimeouts.WithLabelValues(labels...).Inc()
		e.kill(containerID)
		span.SetStatus(codes.Error, "execution timed out")
	default:
		execFailures.WithLabelValues(labels...).Inc()
		span.RecordError(waitErr)
		span.SetStatus(codes.Error, waitErr.Error())
		return result, fmt.Errorf("container wait: %w", waitErr)
	}

	e.collect(parent, containerID, &result)

	if result.TimedOut {
		return result, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	return result, nil
}

// await blocks until the container exits. The exit code is -1 when it never did.
func (e *DockerExecutor) await(ctx context.Context, id string) (int, error) {
	statusCh, errCh := e.client.ContainerWait(ctx, id, container.WaitConditionNextExit)
	select {
	case status := <-statusCh:
		return int(status.StatusCode), nil
	case err := <-errCh:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return -1, ctxErr
		}
		return -1, err
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

func (e *DockerExecutor) kill(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.client.ContainerKill(ctx, id, "KILL"); err != nil {
		e.logger.Error().Err(err).Str("container_id", id).Msg("failed to kill timed out container")
	}
}

// collect copies the output and resource usage of a stopped container into result.
// Failures only cost the affected fields.
func (e *DockerExecutor) collect(ctx context.Context, id string, result *Result) {
	logger := e.logger.With().Str("container_id", id).Logger()

	logs, err := e.client.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		logger.Warn().Err(err).Msg("container output unavailable")
	} else {
		err = result.readMultiplexed(logs)
		logs.Close()
		if err != nil {
			logger.Warn().Err(err).Msg("container output unreadable")
		}
	}

	statsCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	stats, err := e.client.ContainerStatsOneShot(statsCtx, id)
	if err != nil {
		logger.Debug().Err(err).Msg("container usage unavailable")
		return
	}
	defer stats.Body.Close()
	if err := result.readUsage(stats.Body); err != nil {
		logger.Debug().Err(err).Msg("container usage unreadable")
	}
}

// readMultiplexed splits a Docker log stream into Stdout and Stderr.
func (r *Result) readMultiplexed(stream io.Reader) error {
	var stdout, stderr strings.Builder
	if _, err := stdcopy.StdCopy(&stdout, &stderr, stream); err != nil {
		return err
	}
	r.Stdout, r.Stderr = stdout.String(), stderr.String()
	return nil
}

// containerUsage is the part of a stats payload the sandbox reports.
type containerUsage struct {
	MemoryStats struct {
		Usage    uint64 `json:"usage"`
		MaxUsage uint64 `json:"max_usage"`
	} `json:"memory_stats"`
	CPUStats struct {
		CPUUsage struct {
			TotalUsage uint64 `json:"total_usage"`
		} `json:"cpu_usage"`
	} `json:"cpu_stats"`
}

// readUsage records peak memory and total CPU time from a one-shot stats payload.
func (r *Result) readUsage(payload io.Reader) error {
	var usage containerUsage
	if err := json.NewDecoder(payload).Decode(&usage); err != nil {
		return fmt.Errorf("decode stats: %w", err)
	}
	memory := usage.MemoryStats.Usage
	if usage.MemoryStats.MaxUsage > memory {
		memory = usage.MemoryStats.MaxUsage
	}
	r.MemoryUsageBytes = int64(memory)
	r.CPUUsageNanosec = usage.CPUStats.CPUUsage.TotalUsage
	return nil
}

// Close shuts down the executor's underlying client.
func (e *DockerExecutor) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
