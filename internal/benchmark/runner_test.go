package benchmark

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/models"
	"github.com/noah-isme/forge/pkg/ai"
)

type stubGenerator struct {
	requests  []ai.GenerateRequest
	responses map[string]string
}

func (s *stubGenerator) Generate(_ context.Context, req ai.GenerateRequest) (ai.GenerateResponse, error) {
	s.requests = append(s.requests, req)
	content, ok := s.responses[req.Prompt]
	if !ok {
		return ai.GenerateResponse{}, errors.New("model not loaded")
	}
	return ai.GenerateResponse{Content: content}, nil
}

func TestRunnerScoresEveryTask(t *testing.T) {
	cfg := domainConfig(t, domain.Coding)
	generator := &stubGenerator{responses: map[string]string{"write add": pythonAnswer}}
	runner := NewRunner(generator, NewScorer(cfg, nil), zerolog.Nop())

	tasks := []models.BenchmarkTask{
		{ID: "add", Prompt: "write add"},
		{ID: "broken", Prompt: "write sub"},
	}

	results, err := runner.Run(context.Background(), tasks, RunOptions{Model: cfg.DefaultModel(), SystemPrompt: cfg.SystemPrompt})
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.Equal(t, "add", results[0].TaskID)
	require.True(t, results[0].HasCode)
	require.Equal(t, 25.0, results[0].StructureScore)

	require.Equal(t, "broken", results[1].TaskID)
	require.False(t, results[1].HasCode)
	require.Equal(t, len("ERROR: model not loaded"), results[1].ResponseLength)
	require.GreaterOrEqual(t, results[1].DurationSeconds, 0.0)

	require.Len(t, generator.requests, 2)
	require.Equal(t, "forge-coder:latest", generator.requests[0].Model)
	require.Equal(t, cfg.SystemPrompt, generator.requests[0].SystemPrompt)
}

func TestRunnerStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(&stubGenerator{}, NewScorer(domainConfig(t, domain.Chat), nil), zerolog.Nop())
	results, err := runner.Run(ctx, []models.BenchmarkTask{{ID: "a", Prompt: "hi"}}, RunOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, results)
}
