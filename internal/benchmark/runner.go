package benchmark

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/forge/internal/models"
	"github.com/noah-isme/forge/pkg/ai"
)

// Runner generates a response for every task and scores it.
type Runner struct {
	generator ai.Generator
	scorer    *Scorer
	logger    zerolog.Logger
}

// NewRunner wires a generator to a scorer.
func NewRunner(generator ai.Generator, scorer *Scorer, logger zerolog.Logger) *Runner {
	return &Runner{
		generator: generator,
		scorer:    scorer,
		logger:    logger.With().Str("component", "benchmark_runner").Logger(),
	}
}

// RunOptions select the model and system prompt of a run.
type RunOptions struct {
	Model        string
	SystemPrompt string
}

// Run evaluates tasks sequentially. Generation failures are scored as "ERROR: ..." responses; only cancellation aborts.
func (r *Runner) Run(ctx context.Context, tasks []models.BenchmarkTask, opts RunOptions) ([]models.BenchmarkResult, error) {
	results := make([]models.BenchmarkResult, 0, len(tasks))
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		start := time.Now()
		response := r.generate(ctx, task, opts)
		duration := time.Since(start)

		result := r.scorer.Score(ctx, response, task)
		result.DurationSeconds = round2(duration.Seconds())
		results = append(results, result)

		r.logger.Info().
			Int("index", i+1).
			Int("of", len(tasks)).
			Str("task_id", string(task.ID)).
			Float64("score", result.TotalScore).
			Float64("duration_seconds", result.DurationSeconds).
			Msg("task evaluated")
	}
	return results, nil
}

func (r *Runner) generate(ctx context.Context, task models.BenchmarkTask, opts RunOptions) string {
	resp, err := r.generator.Generate(ctx, ai.GenerateRequest{
		Model:        opts.Model,
		SystemPrompt: opts.SystemPrompt,
		Prompt:       task.Prompt,
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("task_id", string(task.ID)).Msg("generation failed")
		return "ERROR: " + err.Error()
	}
	return resp.Content
}
