package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "data/raw", cfg.RawDir)
	require.Equal(t, "process", cfg.ExecutorKind)
	require.Equal(t, 10*time.Second, cfg.ExecutionTimeout)
	require.Equal(t, 10*time.Minute, cfg.SummaryCacheTTL)
	require.Equal(t, "latest", cfg.Version)
	require.False(t, cfg.ArtifactUploadEnabled())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("FORGE_APP_PORT", ":9090")
	t.Setenv("FORGE_EXECUTOR_KIND", "Docker")
	t.Setenv("FORGE_EXECUTION_TIMEOUT_MS", "2500")
	t.Setenv("FORGE_JWT_SECRET", "s3cret")
	t.Setenv("FORGE_CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("FORGE_CLOUDINARY_API_KEY", "key")
	t.Setenv("FORGE_CLOUDINARY_API_SECRET", "secret")

	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, "docker", cfg.ExecutorKind)
	require.Equal(t, 2500*time.Millisecond, cfg.ExecutionTimeout)
	require.NoError(t, cfg.RequireJWT())
	require.True(t, cfg.ArtifactUploadEnabled())
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("FORGE_DATA_RAW_DIR", "/from/env")

	flags := pflag.NewFlagSet("prepare", pflag.ContinueOnError)
	flags.String("raw-dir", "", "")
	flags.Int("min-pairs", 0, "")
	flags.Float64("split-ratio", 0, "")
	flags.String("task-type", "", "")
	require.NoError(t, flags.Parse([]string{"--raw-dir", "/from/flag", "--min-pairs", "3", "--split-ratio", "0.8", "--task-type", " Tools "}))

	cfg, err := Load(flags)
	require.NoError(t, err)
	require.Equal(t, "/from/flag", cfg.RawDir)
	require.Equal(t, 3, cfg.MinExamples)
	require.Equal(t, 0.8, cfg.SplitRatio)
	require.Equal(t, "tools", cfg.TaskType)
}

func TestLoadUnsetFlagKeepsEnvironment(t *testing.T) {
	t.Setenv("FORGE_DATA_RAW_DIR", "/from/env")

	flags := pflag.NewFlagSet("prepare", pflag.ContinueOnError)
	flags.String("raw-dir", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(flags)
	require.NoError(t, err)
	require.Equal(t, "/from/env", cfg.RawDir)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("FORGE_PREPARE_SPLIT_RATIO", "1.5")
	_, err := Load(nil)
	require.Error(t, err)
}

func TestLoadRejectsInvalidTTL(t *testing.T) {
	t.Setenv("FORGE_BENCHMARK_CACHE_TTL", "soon")
	_, err := Load(nil)
	require.Error(t, err)
}

func TestRequireJWT(t *testing.T) {
	require.Error(t, Config{}.RequireJWT())
}
