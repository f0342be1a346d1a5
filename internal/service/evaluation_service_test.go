package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forge/internal/benchmark"
	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/models"
	"github.com/noah-isme/forge/internal/repository"
)

const addAnswer = "```python\ndef add(a, b):\n    return a + b\n```"

func writeTasks(t *testing.T, dir, name string, tasks ...models.BenchmarkTask) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var content []byte
	for _, task := range tasks {
		line, err := json.Marshal(task)
		require.NoError(t, err)
		content = append(content, line...)
		content = append(content, '\n')
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
}

func newTestEvaluation(t *testing.T, runs repository.BenchmarkRunRepository, cache *redis.Client, events EventPublisher, generator *fixedGenerator) (*evaluationService, string, string) {
	t.Helper()
	root := t.TempDir()
	benchDir := filepath.Join(root, "benchmarks")
	resultsDir := filepath.Join(root, "results")

	writeTasks(t, benchDir, benchmark.FallbackTaskFile,
		models.BenchmarkTask{ID: "add", Category: "functions", Prompt: "Write add(a, b)."},
		models.BenchmarkTask{ID: "add-again", Category: "functions", Prompt: "Write add(a, b) again."},
	)

	svc := NewEvaluationService(domain.NewRegistry("", nil), generator, nil, runs, cache, events, nil, EvaluationSettings{
		BenchmarkDir: benchDir,
		ResultsDir:   resultsDir,
	}, zerolog.Nop()).(*evaluationService)
	svc.now = func() time.Time { return time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC) }

	return svc, benchDir, resultsDir
}

func TestEvaluateFlagsRegressionAgainstPreviousRun(t *testing.T) {
	runs := repository.NewBenchmarkRunRepository(setupServiceDB(t))
	require.NoError(t, runs.Create(context.Background(), &models.BenchmarkRun{
		RunID:        "previous",
		Domain:       "coding",
		Version:      "v1",
		OverallScore: 100,
		EvaluatedAt:  time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
	}))

	events := &recordingPublisher{}
	generator := &fixedGenerator{content: addAnswer}
	svc, _, resultsDir := newTestEvaluation(t, runs, nil, events, generator)

	result, err := svc.Evaluate(context.Background(), EvaluateRequest{Domain: "coding", Version: "v2"})
	require.NoError(t, err)

	summary := result.Summary
	require.Equal(t, 2, summary.TasksEvaluated)
	require.Equal(t, 50.0, summary.OverallScore)
	require.Equal(t, 50.0, summary.Categories["functions"])
	require.Equal(t, "forge-coder:latest", summary.Model)
	require.Equal(t, []string{"forge-coder:latest", "forge-coder:latest"}, generator.models)

	require.NotNil(t, summary.Comparison)
	require.Equal(t, models.ComparisonRegression, summary.Comparison.Status)
	require.Equal(t, -50.0, summary.Comparison.Delta)
	require.Equal(t, "v1", summary.Comparison.PreviousVersion)

	expectedFile := filepath.Join(resultsDir, "v2-1775124000.json")
	require.Equal(t, expectedFile, result.ResultFile)
	data, err := os.ReadFile(expectedFile)
	require.NoError(t, err)
	var written models.RunSummary
	require.NoError(t, json.Unmarshal(data, &written))
	require.Equal(t, summary.RunID, written.RunID)

	latest, err := runs.Latest(context.Background(), "coding")
	require.NoError(t, err)
	require.Equal(t, summary.RunID, latest.RunID)
	require.True(t, latest.Regression)

	require.Len(t, events.events, 1)
	completed, ok := events.events[0].payload.(BenchmarkCompletedEvent)
	require.True(t, ok)
	require.Equal(t, SubjectBenchmarkCompleted, events.events[0].subject)
	require.Equal(t, models.ComparisonRegression, completed.Status)
}

func TestEvaluateWithoutStoreIsBaseline(t *testing.T) {
	svc, _, _ := newTestEvaluation(t, nil, nil, nil, &fixedGenerator{content: addAnswer})

	result, err := svc.Evaluate(context.Background(), EvaluateRequest{Domain: "reasoning", Model: "custom:7b"})
	require.NoError(t, err)
	require.Equal(t, "reasoning", result.Summary.Domain)
	require.Equal(t, benchmark.DefaultVersion, result.Summary.Version)
	require.Equal(t, "custom:7b", result.Summary.Model)
	require.Equal(t, models.ComparisonBaseline, result.Summary.Comparison.Status)
	require.Equal(t, benchmark.FallbackTaskFile, filepath.Base(result.TaskFile))

	_, err = svc.Latest(context.Background(), "reasoning")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestEvaluateMissingTasks(t *testing.T) {
	svc := NewEvaluationService(domain.NewRegistry("", nil), &fixedGenerator{}, nil, nil, nil, nil, nil, EvaluationSettings{
		BenchmarkDir: t.TempDir(),
		ResultsDir:   t.TempDir(),
	}, zerolog.Nop())

	_, err := svc.Evaluate(context.Background(), EvaluateRequest{Domain: "coding"})
	require.ErrorIs(t, err, benchmark.ErrNoTasks)
}

func TestLatestUsesRedisCache(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	runs := repository.NewBenchmarkRunRepository(setupServiceDB(t))
	svc, _, _ := newTestEvaluation(t, runs, client, nil, &fixedGenerator{content: addAnswer})

	result, err := svc.Evaluate(context.Background(), EvaluateRequest{Domain: "coding", Version: "v3"})
	require.NoError(t, err)
	require.True(t, server.Exists("forge:benchmark:latest:coding"))

	cached, err := svc.Latest(context.Background(), "coding")
	require.NoError(t, err)
	require.Equal(t, result.Summary.RunID, cached.RunID)
	require.Equal(t, "v3", cached.Version)

	server.FlushAll()
	fromStore, err := svc.Latest(context.Background(), "Coding")
	require.NoError(t, err)
	require.Equal(t, result.Summary.RunID, fromStore.RunID)
	require.True(t, server.Exists("forge:benchmark:latest:coding"))

	listed, err := svc.Runs(context.Background(), "coding", 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = svc.Runs(context.Background(), "poetry", 10)
	require.ErrorIs(t, err, domain.ErrUnknownDomain)
}
