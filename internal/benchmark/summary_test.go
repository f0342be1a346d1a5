package benchmark

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forge/internal/models"
)

func TestSummarizeAveragesAndCategories(t *testing.T) {
	results := []models.BenchmarkResult{
		{TaskID: "a", Category: "algorithms", TotalScore: 80, StructureScore: 25, CorrectnessScore: 30, SimilarityScore: 15, CompletenessScore: 10},
		{TaskID: "b", Category: "algorithms", TotalScore: 71, StructureScore: 20, CorrectnessScore: 30, SimilarityScore: 10, CompletenessScore: 11},
		{TaskID: "c", Category: "strings", TotalScore: 50, StructureScore: 15, CorrectnessScore: 20, SimilarityScore: 10, CompletenessScore: 5},
	}
	evaluatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))

	summary := Summarize(results, RunMeta{Model: "forge-coder:latest", Domain: "coding", EvaluatedAt: evaluatedAt})
	require.Equal(t, DefaultVersion, summary.Version)
	require.Equal(t, 3, summary.TasksEvaluated)
	require.Equal(t, 67.0, summary.OverallScore)
	require.Equal(t, 20.0, summary.StructureScore)
	require.Equal(t, 26.67, summary.CorrectnessScore)
	require.Equal(t, 11.67, summary.SimilarityScore)
	require.Equal(t, 8.67, summary.CompletenessScore)
	require.Equal(t, map[string]float64{"algorithms": 75.5, "strings": 50}, summary.Categories)
	require.Equal(t, time.UTC, summary.EvaluatedAt.Location())
}

func TestSummarizeEmptyRun(t *testing.T) {
	summary := Summarize(nil, RunMeta{Version: "v1", Domain: "chat"})
	require.Zero(t, summary.TasksEvaluated)
	require.Zero(t, summary.OverallScore)
	require.NotNil(t, summary.Results)
	require.Empty(t, summary.Categories)
}

func TestCompare(t *testing.T) {
	current := models.RunSummary{OverallScore: 75}

	baseline := Compare(current, nil)
	require.Equal(t, models.ComparisonBaseline, baseline.Status)

	regression := Compare(current, &models.BenchmarkRun{Version: "v1", OverallScore: 82})
	require.Equal(t, models.ComparisonRegression, regression.Status)
	require.Equal(t, -7.0, regression.Delta)
	require.Equal(t, "v1", regression.PreviousVersion)
	require.True(t, regression.IsRegression())

	require.Equal(t, models.ComparisonStable, Compare(current, &models.BenchmarkRun{OverallScore: 80}).Status, "a drop of exactly five is not a regression")
	require.Equal(t, models.ComparisonStable, Compare(current, &models.BenchmarkRun{OverallScore: 75}).Status)
	require.Equal(t, models.ComparisonImprovement, Compare(current, &models.BenchmarkRun{OverallScore: 74.5}).Status)
}

func TestRunSummaryMatchesContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("..", "..", "contracts", "run_summary.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	summary := Summarize([]models.BenchmarkResult{
		{TaskID: "a", Category: "algorithms", TotalScore: 80, StructureScore: 25, CorrectnessScore: 30, SimilarityScore: 15, CompletenessScore: 10, DurationSeconds: 1.25, ResponseLength: 420, HasCode: true},
	}, RunMeta{RunID: "run-1", Version: "v2", Model: "forge-coder:latest", Domain: "coding", EvaluatedAt: time.Now()})
	comparison := Compare(summary, &models.BenchmarkRun{Version: "v1", OverallScore: 70})
	summary.Comparison = &comparison

	body, err := json.Marshal(summary)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
