package benchmark

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/models"
	"github.com/noah-isme/forge/pkg/sandbox"
)

type stubExecutor struct {
	programs []sandbox.Program
	run      func(program sandbox.Program) (sandbox.Result, error)
}

func (s *stubExecutor) Run(_ context.Context, program sandbox.Program) (sandbox.Result, error) {
	s.programs = append(s.programs, program)
	return s.run(program)
}

func domainConfig(t *testing.T, id domain.ID) domain.Config {
	t.Helper()
	cfg, err := domain.Defaults(id)
	require.NoError(t, err)
	return cfg
}

const pythonAnswer = "Here you go:\n\n```python\ndef add(a, b):\n    return a + b\n```\n"

func TestCorrectnessCountsPassedTestCases(t *testing.T) {
	executor := &stubExecutor{run: func(program sandbox.Program) (sandbox.Result, error) {
		if strings.HasSuffix(program.Source, "print(add(1, 2))") {
			return sandbox.Result{Stdout: "3\n"}, nil
		}
		return sandbox.Result{Stdout: "wrong\n"}, nil
	}}
	scorer := NewScorer(domainConfig(t, domain.Coding), executor)

	task := models.BenchmarkTask{
		ID:       "add",
		Prompt:   "write add",
		Language: "python",
		TestCases: []models.TestCase{
			{Code: "print(add(1, 2))", Expected: "3"},
			{Code: "print(add(2, 2))", Expected: "5"},
		},
	}

	require.Equal(t, 20.0, scorer.Correctness(context.Background(), pythonAnswer, task))
	require.Len(t, executor.programs, 2)
	require.Equal(t, "def add(a, b):\n    return a + b\n\nprint(add(1, 2))", executor.programs[0].Source)
	require.Equal(t, "python", executor.programs[0].Language)
	require.Equal(t, sandbox.DefaultTimeout, executor.programs[0].Timeout)
}

func TestCorrectnessTreatsExecutionFailuresAsNotPassed(t *testing.T) {
	calls := 0
	executor := &stubExecutor{run: func(sandbox.Program) (sandbox.Result, error) {
		calls++
		switch calls {
		case 1:
			return sandbox.Result{TimedOut: true, ExitCode: -1}, sandbox.ErrTimeout
		case 2:
			return sandbox.Result{}, errors.New("docker unavailable")
		case 3:
			return sandbox.Result{ExitCode: 1, Stderr: "Traceback"}, nil
		default:
			return sandbox.Result{Stdout: "anything"}, nil
		}
	}}
	scorer := NewScorer(domainConfig(t, domain.Coding), executor)

	task := models.BenchmarkTask{
		ID:     "t",
		Prompt: "p",
		TestCases: []models.TestCase{
			{Code: "a()"}, {Code: "b()"}, {Code: "c()"}, {Code: "d()"},
		},
	}
	require.Equal(t, 10.0, scorer.Correctness(context.Background(), pythonAnswer, task))
}

func TestCorrectnessSkipsEmptyTestCodeButCountsIt(t *testing.T) {
	executor := &stubExecutor{run: func(sandbox.Program) (sandbox.Result, error) {
		return sandbox.Result{Stdout: "3"}, nil
	}}
	scorer := NewScorer(domainConfig(t, domain.Coding), executor)

	task := models.BenchmarkTask{ID: "t", Prompt: "p", TestCases: []models.TestCase{{Code: ""}, {Code: "print(3)", Expected: "3"}}}
	require.Equal(t, 20.0, scorer.Correctness(context.Background(), pythonAnswer, task))
	require.Len(t, executor.programs, 1)
}

func TestCorrectnessFallbacks(t *testing.T) {
	scorer := NewScorer(domainConfig(t, domain.Coding), nil)
	ctx := context.Background()

	longCode := "```python\n" + strings.Repeat("x = 1\n", 10) + "```"
	require.Equal(t, 25.0, scorer.Correctness(ctx, longCode, models.BenchmarkTask{}))
	require.Equal(t, 10.0, scorer.Correctness(ctx, "```python\nx = 1\n```", models.BenchmarkTask{}))
	require.Equal(t, 10.0, scorer.Correctness(ctx, "no code at all", models.BenchmarkTask{}))

	withTests := models.BenchmarkTask{TestCases: []models.TestCase{{Code: "print(1)"}}}
	require.Equal(t, 0.0, scorer.Correctness(ctx, "prose only", withTests))
	require.Equal(t, 0.0, scorer.Correctness(ctx, pythonAnswer, withTests), "no executor means nothing passes")
}

func TestStructureCodeDomain(t *testing.T) {
	scorer := NewScorer(domainConfig(t, domain.Coding), nil)

	require.Equal(t, 25.0, scorer.Structure(pythonAnswer, models.BenchmarkTask{Language: "python"}))
	require.Equal(t, 25.0, scorer.Structure(pythonAnswer, models.BenchmarkTask{}), "python is the default language")
	require.Equal(t, 20.0, scorer.Structure("```python\nclass A: pass\n```", models.BenchmarkTask{}))
	require.Equal(t, 15.0, scorer.Structure("```\nx = 1\n```", models.BenchmarkTask{}))

	js := "```js\nconst add = (a, b) => {\n  return a + b\n}\n```"
	require.Equal(t, 25.0, scorer.Structure(js, models.BenchmarkTask{Language: "javascript"}))
	require.Equal(t, 25.0, scorer.Structure(js, models.BenchmarkTask{Language: "TypeScript"}))

	require.Equal(t, 25.0, scorer.Structure("```rust\nfn main() { println!(\"hi\"); }\n```", models.BenchmarkTask{Language: "rust"}))
	require.Equal(t, 15.0, scorer.Structure("```rust\nfn main() {}\n```", models.BenchmarkTask{Language: "rust"}))

	require.Equal(t, 5.0, scorer.Structure("just write def foo inline", models.BenchmarkTask{}))
	require.Equal(t, 0.0, scorer.Structure("no code here", models.BenchmarkTask{}))
}

func TestNonCodeDomainRubrics(t *testing.T) {
	cfg := domainConfig(t, domain.Reasoning)
	scorer := NewScorer(cfg, nil)

	response := "## Diagnosis\n\n" + strings.Repeat("The pool saturates because every request holds a connection. ", 8) +
		"\n\nI recommend bounding the pool."
	require.Greater(t, len(response), 500)

	task := models.BenchmarkTask{ID: "r1", Prompt: "why is it slow"}
	require.Equal(t, 18.0, scorer.Structure(response, task))
	require.Equal(t, 28.0, scorer.Correctness(context.Background(), response, task))

	task.Requirements = []string{"pool", "Because", "cache"}
	require.Equal(t, 16.0+16.0, scorer.Correctness(context.Background(), response, task))
	require.Equal(t, 10.0, scorer.Completeness(response, task))

	require.Equal(t, 0.0, scorer.Structure("", models.BenchmarkTask{}))
}

func TestSimilarity(t *testing.T) {
	coding := NewScorer(domainConfig(t, domain.Coding), nil)

	require.Equal(t, 10.0, coding.Similarity(pythonAnswer, models.BenchmarkTask{}))
	require.Equal(t, 0.0, coding.Similarity("prose", models.BenchmarkTask{GoldAnswer: "def add(a, b): return a + b"}))
	require.Equal(t, 20.0, coding.Similarity(pythonAnswer, models.BenchmarkTask{GoldAnswer: "```python\ndef add(a, b):\n    return a + b\n```"}))
	require.Equal(t, 20.0, coding.Similarity(pythonAnswer, models.BenchmarkTask{GoldAnswer: "def add(a, b):\n    return a + b"}), "gold without blocks is compared as text")

	partial := coding.Similarity(pythonAnswer, models.BenchmarkTask{GoldAnswer: "def sub(a, b):\n    return a - b"})
	require.Greater(t, partial, 0.0)
	require.Less(t, partial, 20.0)

	reasoning := NewScorer(domainConfig(t, domain.Reasoning), nil)
	require.Equal(t, 20.0, reasoning.Similarity("  the cache is cold  ", models.BenchmarkTask{GoldAnswer: "the cache is cold"}))
}

func TestCompletenessHeuristics(t *testing.T) {
	scorer := NewScorer(domainConfig(t, domain.Coding), nil)

	long := pythonAnswer + strings.Repeat("explanation ", 20)
	require.Equal(t, 12.0, scorer.Completeness(long, models.BenchmarkTask{}))
	require.Equal(t, 8.0, scorer.Completeness(strings.Repeat("words ", 30), models.BenchmarkTask{}))
	require.Equal(t, 5.0, scorer.Completeness("short", models.BenchmarkTask{}))
	require.Equal(t, 15.0, scorer.Completeness("Uses RETURN and def", models.BenchmarkTask{Requirements: []string{"return", "def"}}))
}

func TestScoreTotalsAndBounds(t *testing.T) {
	executor := &stubExecutor{run: func(sandbox.Program) (sandbox.Result, error) {
		return sandbox.Result{Stdout: "3"}, nil
	}}
	responses := []string{
		"",
		"ERROR: connection refused",
		pythonAnswer,
		pythonAnswer + strings.Repeat("## notes\n\n- because step\n", 40),
		"```\n```",
	}
	tasks := []models.BenchmarkTask{
		{ID: "a", Prompt: "p"},
		{ID: "b", Prompt: "p", Category: "algorithms", TestCases: []models.TestCase{{Code: "print(3)", Expected: "3"}}, Requirements: []string{"return"}, GoldAnswer: "def add(a, b): return a + b"},
	}

	for _, id := range domain.IDs {
		cfg := domainConfig(t, id)
		scorer := NewScorer(cfg, executor)
		w := scorer.Weights()
		for _, response := range responses {
			for _, task := range tasks {
				result := scorer.Score(context.Background(), response, task)
				require.Equal(t, result.StructureScore+result.CorrectnessScore+result.SimilarityScore+result.CompletenessScore, result.TotalScore)
				require.GreaterOrEqual(t, result.StructureScore, 0.0)
				require.LessOrEqual(t, result.StructureScore, w.Structure)
				require.LessOrEqual(t, result.CorrectnessScore, w.Correctness)
				require.LessOrEqual(t, result.SimilarityScore, w.Similarity)
				require.LessOrEqual(t, result.CompletenessScore, w.Completeness)
				require.LessOrEqual(t, result.TotalScore, w.Total())
			}
		}
	}
}

func TestScoreFillsResultMetadata(t *testing.T) {
	scorer := NewScorer(domainConfig(t, domain.Coding), nil)
	result := scorer.Score(context.Background(), pythonAnswer, models.BenchmarkTask{ID: "x", Prompt: "p"})
	require.Equal(t, "x", result.TaskID)
	require.Equal(t, "general", result.Category)
	require.True(t, result.HasCode)
	require.Equal(t, len(pythonAnswer), result.ResponseLength)
}

func TestCustomWeightsScaleRubrics(t *testing.T) {
	cfg := domainConfig(t, domain.Coding)
	cfg.Eval.Weights = domain.Weights{Structure: 10, Correctness: 50, Similarity: 30, Completeness: 10}
	scorer := NewScorer(cfg, nil)

	require.Equal(t, 10.0, scorer.Structure(pythonAnswer, models.BenchmarkTask{}))
	require.Equal(t, 15.0, scorer.Similarity(pythonAnswer, models.BenchmarkTask{}))
	require.Equal(t, 3.0, scorer.Completeness("short", models.BenchmarkTask{}))
}

func TestExtractCodeBlocks(t *testing.T) {
	text := "a\n```python\nx = 1\n```\nb\n```\ny = 2\n```\n```unterminated\nz"
	require.Equal(t, []string{"x = 1\n", "y = 2\n"}, ExtractCodeBlocks(text))
	require.Equal(t, "x = 1\n\ny = 2\n", JoinedCode(text))
	require.Empty(t, ExtractCodeBlocks("```python no newline```"))
}
