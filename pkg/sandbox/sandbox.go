// Package sandbox runs untrusted snippets in a throwaway workspace, either as a local child process or inside a container.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single run when neither the program nor the executor sets one.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when a program exceeds its wall-clock budget.
var ErrTimeout = errors.New("execution timed out")

// Runtime describes how a language is executed.
type Runtime struct {
	Language string
	Image    string
	FileName string
	Command  []string
}

var (
	pythonRuntime = Runtime{
		Language: "python",
		Image:    "python:3.11-alpine",
		FileName: "main.py",
		Command:  []string{"python3", "main.py"},
	}
	javascriptRuntime = Runtime{
		Language: "javascript",
		Image:    "node:20-alpine",
		FileName: "main.js",
		Command:  []string{"node", "main.js"},
	}
)

var runtimes = map[string]Runtime{
	"python":     pythonRuntime,
	"py":         pythonRuntime,
	"python3":    pythonRuntime,
	"javascript": javascriptRuntime,
	"js":         javascriptRuntime,
	"node":       javascriptRuntime,
}

// RuntimeFor resolves a language name. Unknown or empty languages run as Python.
func RuntimeFor(language string) Runtime {
	if rt, ok := runtimes[strings.ToLower(strings.TrimSpace(language))]; ok {
		return rt
	}
	return pythonRuntime
}

// Program is a self-contained source file to execute.
type Program struct {
	Language string
	Source   string
	Timeout  time.Duration
}

// Result summarises one execution.
type Result struct {
	Stdout           string
	Stderr           string
	ExitCode         int
	Duration         time.Duration
	TimedOut         bool
	MemoryUsageBytes int64
	CPUUsageNanosec  uint64
}

// Succeeded reports a clean exit within the time budget.
func (r Result) Succeeded() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Executor runs programs in isolation.
type Executor interface {
	Run(ctx context.Context, program Program) (Result, error)
}

// RunCloser is an executor holding resources that must be released.
type RunCloser interface {
	Executor
	io.Closer
}

// Kind selects an executor implementation.
type Kind string

// Supported executor kinds.
const (
	KindProcess Kind = "process"
	KindDocker  Kind = "docker"
)

// Config groups executor configuration values.
type Config struct {
	Kind          Kind
	Host          string
	Timeout       time.Duration
	MemoryLimitMB int64
	CPUShares     int64
	WorkingDir    string
	TempDir       string
	Logger        zerolog.Logger
}

// Open constructs the executor selected by cfg.Kind.
func Open(cfg Config) (RunCloser, error) {
	switch cfg.Kind {
	case KindProcess, "":
		return NewProcessExecutor(cfg), nil
	case KindDocker:
		return NewDockerExecutor(cfg)
	default:
		return nil, fmt.Errorf("unsupported executor kind %q", cfg.Kind)
	}
}

func resolveTimeout(program, fallback time.Duration) time.Duration {
	if program > 0 {
		return program
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTimeout
}

// prepareWorkspace writes the program source into a fresh directory and returns it with a cleanup func.
func prepareWorkspace(tempDir string, program Program) (string, Runtime, func(), error) {
	runtime := RuntimeFor(program.Language)

	workspace, err := os.MkdirTemp(tempDir, "forge-sandbox-*")
	if err != nil {
		return "", runtime, nil, fmt.Errorf("create workspace: %w", err)
	}
	cleanup := func() {
		_ = os.RemoveAll(workspace)
	}

	if err := os.WriteFile(filepath.Join(workspace, runtime.FileName), []byte(program.Source), 0o644); err != nil {
		cleanup()
		return "", runtime, nil, fmt.Errorf("write source file: %w", err)
	}

	return workspace, runtime, cleanup, nil
}
