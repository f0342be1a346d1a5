package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const processExecutorLabel = "process"

// ProcessExecutor runs programs as local child processes in a temporary directory.
type ProcessExecutor struct {
	cfg    Config
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewProcessExecutor constructs a local process executor.
func NewProcessExecutor(cfg Config) *ProcessExecutor {
	return &ProcessExecutor{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/forge/pkg/sandbox"),
		logger: cfg.Logger.With().Str("component", "sandbox.process").Logger(),
	}
}

// Run executes the program with the runtime's interpreter. Non-zero exits are reported in the result, not as errors.
func (e *ProcessExecutor) Run(parent context.Context, program Program) (Result, error) {
	workspace, runtime, cleanup, err := prepareWorkspace(e.cfg.TempDir, program)
	if err != nil {
		execFailures.WithLabelValues(processExecutorLabel, RuntimeFor(program.Language).Language).Inc()
		return Result{}, err
	}
	defer cleanup()

	ctx, span := e.tracer.Start(parent, "sandbox.process.run", trace.WithAttributes(
		attribute.String("sandbox.language", runtime.Language),
	))
	defer span.End()

	timeout := resolveTimeout(program.Timeout, e.cfg.Timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, runtime.Command[0], runtime.Command[1:]...)
	cmd.Dir = workspace
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	runErr := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	execDuration.WithLabelValues(processExecutorLabel, runtime.Language).Observe(result.Duration.Seconds())

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = -1
		execTimeouts.WithLabelValues(processExecutorLabel, runtime.Language).Inc()
		span.SetStatus(codes.Error, "execution timed out")
		return result, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		execFailures.WithLabelValues(processExecutorLabel, runtime.Language).Inc()
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		e.logger.Warn().Err(runErr).Str("language", runtime.Language).Msg("failed to start interpreter")
		return result, fmt.Errorf("run %s: %w", runtime.Command[0], runErr)
	}

	return result, nil
}

// Close implements io.Closer.
func (e *ProcessExecutor) Close() error {
	return nil
}
