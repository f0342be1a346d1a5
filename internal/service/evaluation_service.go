package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/forge/internal/benchmark"
	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/models"
	"github.com/noah-isme/forge/internal/observability"
	"github.com/noah-isme/forge/internal/repository"
	"github.com/noah-isme/forge/pkg/ai"
	"github.com/noah-isme/forge/pkg/sandbox"
)

// ErrRunNotFound indicates a domain without any recorded benchmark run.
var ErrRunNotFound = errors.New("benchmark run not found")

const latestRunCacheKey = "forge:benchmark:latest:%s"

// EvaluateRequest selects the domain, model and version label of a benchmark run.
type EvaluateRequest struct {
	Domain  string `json:"domain"`
	Model   string `json:"model,omitempty"`
	Version string `json:"version,omitempty"`
}

// EvaluateResult is the outcome of a benchmark run.
type EvaluateResult struct {
	Summary    models.RunSummary   `json:"summary"`
	ResultFile string              `json:"result_file"`
	TaskFile   string              `json:"task_file"`
	TaskStats  benchmark.TaskStats `json:"task_stats"`
}

// EvaluationSettings locates benchmark inputs and outputs.
type EvaluationSettings struct {
	BenchmarkDir string
	ResultsDir   string
	TestTimeout  time.Duration
	CacheTTL     time.Duration
}

// EvaluationService scores a model against a domain benchmark and tracks runs.
type EvaluationService interface {
	Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResult, error)
	Latest(ctx context.Context, domain string) (models.BenchmarkRun, error)
	Runs(ctx context.Context, domain string, limit int) ([]models.BenchmarkRun, error)
}

type evaluationService struct {
	registry  *domain.Registry
	generator ai.Generator
	executor  sandbox.Executor
	runs      repository.BenchmarkRunRepository
	cache     *redis.Client
	events    EventPublisher
	validator *validator.Validate
	settings  EvaluationSettings
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewEvaluationService constructs an evaluation service. runs, cache and events are optional.
func NewEvaluationService(registry *domain.Registry, generator ai.Generator, executor sandbox.Executor, runs repository.BenchmarkRunRepository, cache *redis.Client, events EventPublisher, validate *validator.Validate, settings EvaluationSettings, logger zerolog.Logger) EvaluationService {
	if events == nil {
		events = noopPublisher{}
	}
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	if settings.CacheTTL <= 0 {
		settings.CacheTTL = 10 * time.Minute
	}
	return &evaluationService{
		registry:  registry,
		generator: generator,
		executor:  executor,
		runs:      runs,
		cache:     cache,
		events:    events,
		validator: validate,
		settings:  settings,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/forge/internal/service/evaluation"),
		now:       time.Now,
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResult, error) {
	cfg, err := s.registry.Get(req.Domain)
	if err != nil {
		return EvaluateResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "benchmark.evaluate", trace.WithAttributes(attribute.String("domain", string(cfg.ID))))
	defer span.End()

	result, err := s.evaluate(ctx, cfg, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return EvaluateResult{}, err
	}
	span.SetAttributes(attribute.Float64("overall_score", result.Summary.OverallScore))
	return result, nil
}

func (s *evaluationService) evaluate(ctx context.Context, cfg domain.Config, req EvaluateRequest) (EvaluateResult, error) {
	logger := s.logger.With().Str("domain", string(cfg.ID)).Logger()

	taskFile := benchmark.TaskFile(s.settings.BenchmarkDir, cfg.ID)
	tasks, stats, err := benchmark.LoadTasks(taskFile, s.validator)
	if err != nil {
		return EvaluateResult{}, err
	}
	logger.Info().
		Str("task_file", taskFile).
		Int("tasks", stats.Tasks).
		Int("skipped_lines", stats.Skipped).
		Int("invalid", stats.Invalid).
		Msg("benchmark tasks loaded")

	model := req.Model
	if model == "" {
		model = cfg.DefaultModel()
	}

	scorer := benchmark.NewScorer(cfg, s.executor, benchmark.WithTestTimeout(s.settings.TestTimeout), benchmark.WithLogger(logger))
	results, err := benchmark.NewRunner(s.generator, scorer, logger).Run(ctx, tasks, benchmark.RunOptions{
		Model:        model,
		SystemPrompt: cfg.SystemPrompt,
	})
	if err != nil {
		return EvaluateResult{}, fmt.Errorf("run benchmark: %w", err)
	}

	evaluatedAt := s.now()
	summary := benchmark.Summarize(results, benchmark.RunMeta{
		RunID:       uuid.NewString(),
		Version:     req.Version,
		Model:       model,
		Domain:      string(cfg.ID),
		EvaluatedAt: evaluatedAt,
	})
	summary.Comparison = s.compare(ctx, summary)

	resultFile, err := s.writeResult(summary, evaluatedAt)
	if err != nil {
		return EvaluateResult{}, err
	}

	s.observe(summary)
	s.record(ctx, summary, resultFile)

	completed := BenchmarkCompletedEvent{
		RunID:        summary.RunID,
		Domain:       summary.Domain,
		Version:      summary.Version,
		Model:        summary.Model,
		OverallScore: summary.OverallScore,
		ResultFile:   resultFile,
		CompletedAt:  evaluatedAt.UTC(),
	}
	if summary.Comparison != nil {
		completed.Status = summary.Comparison.Status
		completed.Delta = summary.Comparison.Delta
	}
	if err := s.events.Publish(ctx, SubjectBenchmarkCompleted, completed); err != nil {
		logger.Warn().Err(err).Msg("failed to publish benchmark event")
	}

	logEvent := logger.Info()
	if summary.Comparison != nil && summary.Comparison.IsRegression() {
		logEvent = logger.Warn()
	}
	logEvent.
		Str("run_id", summary.RunID).
		Str("version", summary.Version).
		Float64("overall_score", summary.OverallScore).
		Str("result_file", resultFile).
		Msg("benchmark run completed")

	return EvaluateResult{
		Summary:    summary,
		ResultFile: resultFile,
		TaskFile:   taskFile,
		TaskStats:  stats,
	}, nil
}

// compare looks up the previous run before the current one is stored. Lookup failures skip the comparison.
func (s *evaluationService) compare(ctx context.Context, summary models.RunSummary) *models.Comparison {
	if s.runs == nil {
		comparison := benchmark.Compare(summary, nil)
		return &comparison
	}

	previous, err := s.runs.Latest(ctx, summary.Domain)
	if err != nil {
		s.logger.Warn().Err(err).Str("domain", summary.Domain).Msg("failed to load previous run, skipping comparison")
		return nil
	}

	comparison := benchmark.Compare(summary, previous)
	return &comparison
}

func (s *evaluationService) writeResult(summary models.RunSummary, evaluatedAt time.Time) (string, error) {
	if err := os.MkdirAll(s.settings.ResultsDir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}

	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	path := filepath.Join(s.settings.ResultsDir, fmt.Sprintf("%s-%d.json", summary.Version, evaluatedAt.Unix()))
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}

func (s *evaluationService) observe(summary models.RunSummary) {
	observability.BenchmarkScore().WithLabelValues(summary.Domain).Set(summary.OverallScore)
	for _, result := range summary.Results {
		observability.BenchmarkTaskDuration().WithLabelValues(summary.Domain).Observe(result.DurationSeconds)
	}
	if summary.Comparison != nil && summary.Comparison.IsRegression() {
		observability.BenchmarkRegressions().WithLabelValues(summary.Domain).Inc()
	}
}

func (s *evaluationService) record(ctx context.Context, summary models.RunSummary, resultFile string) {
	run := models.NewBenchmarkRun(summary, resultFile)

	if s.runs != nil {
		if err := s.runs.Create(ctx, &run); err != nil {
			s.logger.Warn().Err(err).Str("run_id", summary.RunID).Msg("failed to record benchmark run")
			return
		}
	}

	s.storeLatest(ctx, run)
}

func (s *evaluationService) Latest(ctx context.Context, domainID string) (models.BenchmarkRun, error) {
	id, err := domain.ParseID(domainID)
	if err != nil {
		return models.BenchmarkRun{}, err
	}
	cacheKey := fmt.Sprintf(latestRunCacheKey, id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var run models.BenchmarkRun
			if unmarshalErr := json.Unmarshal([]byte(cached), &run); unmarshalErr == nil {
				s.logger.Debug().Str("domain", string(id)).Msg("latest run cache hit")
				return run, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read latest run cache")
		}
	}

	if s.runs == nil {
		return models.BenchmarkRun{}, ErrRunNotFound
	}

	run, err := s.runs.Latest(ctx, string(id))
	if err != nil {
		return models.BenchmarkRun{}, err
	}
	if run == nil {
		return models.BenchmarkRun{}, ErrRunNotFound
	}

	s.storeLatest(ctx, *run)
	return *run, nil
}

func (s *evaluationService) storeLatest(ctx context.Context, run models.BenchmarkRun) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(run)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, fmt.Sprintf(latestRunCacheKey, run.Domain), payload, s.settings.CacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store latest run cache")
	}
}

func (s *evaluationService) Runs(ctx context.Context, domainID string, limit int) ([]models.BenchmarkRun, error) {
	id, err := domain.ParseID(domainID)
	if err != nil {
		return nil, err
	}
	if s.runs == nil {
		return []models.BenchmarkRun{}, nil
	}
	return s.runs.ListByDomain(ctx, string(id), limit)
}
