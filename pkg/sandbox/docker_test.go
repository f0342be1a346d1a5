package sandbox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/require"
)

func TestResultReadMultiplexedSplitsStreams(t *testing.T) {
	var stream bytes.Buffer
	stdout := stdcopy.NewStdWriter(&stream, stdcopy.Stdout)
	stderr := stdcopy.NewStdWriter(&stream, stdcopy.Stderr)

	_, err := stdout.Write([]byte("3\n"))
	require.NoError(t, err)
	_, err = stderr.Write([]byte("Traceback (most recent call last)\n"))
	require.NoError(t, err)
	_, err = stdout.Write([]byte("done\n"))
	require.NoError(t, err)

	var result Result
	require.NoError(t, result.readMultiplexed(&stream))
	require.Equal(t, "3\ndone\n", result.Stdout)
	require.Equal(t, "Traceback (most recent call last)\n", result.Stderr)
}

func TestResultReadMultiplexedRejectsRawStream(t *testing.T) {
	result := Result{Stdout: "kept"}
	require.Error(t, result.readMultiplexed(strings.NewReader("plain text without frame headers")))
	require.Equal(t, "kept", result.Stdout)
}

func TestResultReadUsageReportsPeakMemory(t *testing.T) {
	payload := `{"memory_stats":{"usage":4096,"max_usage":65536},"cpu_stats":{"cpu_usage":{"total_usage":1500000}}}`

	var result Result
	require.NoError(t, result.readUsage(strings.NewReader(payload)))
	require.Equal(t, int64(65536), result.MemoryUsageBytes)
	require.Equal(t, uint64(1500000), result.CPUUsageNanosec)

	require.NoError(t, result.readUsage(strings.NewReader(`{"memory_stats":{"usage":8192}}`)))
	require.Equal(t, int64(8192), result.MemoryUsageBytes)
	require.Zero(t, result.CPUUsageNanosec)
}

func TestResultReadUsageRejectsGarbage(t *testing.T) {
	var result Result
	require.Error(t, result.readUsage(strings.NewReader("not json")))
}
