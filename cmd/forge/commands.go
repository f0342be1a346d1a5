package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"

	"github.com/noah-isme/forge/internal/classifier"
	"github.com/noah-isme/forge/internal/config"
	"github.com/noah-isme/forge/internal/handler"
	"github.com/noah-isme/forge/internal/loader"
	"github.com/noah-isme/forge/internal/middleware"
	"github.com/noah-isme/forge/internal/models"
	"github.com/noah-isme/forge/internal/router"
	"github.com/noah-isme/forge/internal/service"
)

const shutdownTimeout = 5 * time.Second

func sourcesFor(cfg config.Config) loader.Sources {
	return loader.Sources{RawDir: cfg.RawDir, TracesDir: cfg.TracesDir}
}

func runPrepare(ctx context.Context, args []string) error {
	flags := commonFlags("prepare")
	domainID := flags.String("domain", "coding", "domain to build a dataset for")
	seed := flags.Int64("seed", 0, "shuffle seed (default 42)")
	flags.String("raw-dir", "", "directory with distillation and ground-truth pairs")
	flags.String("traces-dir", "", "directory with self-iteration and tool traces")
	flags.String("output-dir", "", "dataset output root")
	flags.Int("min-pairs", 0, "minimum examples required (default from domain)")
	flags.Float64("split-ratio", 0, "train fraction (default from domain)")
	flags.String("task-type", "", "restrict the dataset to one task type")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	in := openInfra(ctx, cfg, logger)
	defer in.Close()

	result, err := in.curationService(cfg).Prepare(ctx, service.PrepareRequest{
		Domain:      *domainID,
		TaskType:    cfg.TaskType,
		MinExamples: cfg.MinExamples,
		SplitRatio:  cfg.SplitRatio,
		Seed:        *seed,
	})
	if err != nil {
		return err
	}

	loaded := result.Load.Total()
	fmt.Printf("dataset %s (%s)\n", result.Domain, result.BuildID)
	fmt.Printf("  loaded:     %d (%d lines skipped)\n", loaded.Records, loaded.Skipped)
	fmt.Printf("  accepted:   %d of %d routed\n", result.Filter.Accepted, result.Filter.Routed)
	fmt.Printf("  unique:     %d (%d duplicates)\n", result.Unique, result.Duplicates)
	fmt.Printf("  train:      %d\n  valid:      %d\n  test:       %d\n", result.Train, result.Valid, result.Test)
	fmt.Printf("  written to: %s\n", result.OutputDir)
	for name, url := range result.Artifacts {
		fmt.Printf("  uploaded %s: %s\n", name, url)
	}
	return nil
}

func runEvaluate(ctx context.Context, args []string) error {
	flags := commonFlags("evaluate")
	domainID := flags.String("domain", "coding", "domain to evaluate")
	flags.String("model", "", "model to evaluate (default <model_prefix>:latest)")
	flags.String("model-url", "", "OpenAI-compatible base URL")
	flags.String("version", "", "version label recorded with the run")
	flags.String("benchmarks", "", "directory with <domain>-tasks.jsonl files")
	flags.String("results-dir", "", "directory for result files")
	flags.String("executor", "", "code executor (process or docker)")
	flags.Int("exec-timeout", 0, "per test case timeout in milliseconds")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	in := openInfra(ctx, cfg, logger)
	defer in.Close()

	svc, executor, err := in.evaluationService(cfg)
	if err != nil {
		return err
	}
	defer executor.Close()

	result, err := svc.Evaluate(ctx, service.EvaluateRequest{
		Domain:  *domainID,
		Model:   cfg.Model,
		Version: cfg.Version,
	})
	if err != nil {
		return err
	}

	printSummary(os.Stdout, result)
	return nil
}

func printSummary(w io.Writer, result service.EvaluateResult) {
	summary := result.Summary
	fmt.Fprintf(w, "benchmark %s %s (%s)\n", summary.Domain, summary.Version, summary.Model)
	fmt.Fprintf(w, "  tasks:        %d\n", summary.TasksEvaluated)
	fmt.Fprintf(w, "  overall:      %.1f/100\n", summary.OverallScore)
	fmt.Fprintf(w, "  structure:    %.1f\n", summary.StructureScore)
	fmt.Fprintf(w, "  correctness:  %.1f\n", summary.CorrectnessScore)
	fmt.Fprintf(w, "  similarity:   %.1f\n", summary.SimilarityScore)
	fmt.Fprintf(w, "  completeness: %.1f\n", summary.CompletenessScore)

	categories := make([]string, 0, len(summary.Categories))
	for category := range summary.Categories {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		fmt.Fprintf(w, "    %s: %.1f/100\n", category, summary.Categories[category])
	}
	fmt.Fprintf(w, "  saved to:     %s\n", result.ResultFile)

	comparison := summary.Comparison
	if comparison == nil {
		return
	}
	switch comparison.Status {
	case models.ComparisonRegression:
		fmt.Fprintf(w, "\nWARNING: regression detected, score dropped %.1f points (previous %.1f, current %.1f)\n",
			-comparison.Delta, comparison.PreviousScore, comparison.CurrentScore)
	case models.ComparisonImprovement:
		fmt.Fprintf(w, "\nimprovement: +%.1f points vs previous (%.1f)\n", comparison.Delta, comparison.PreviousScore)
	}
}

func runClassify(_ context.Context, args []string) error {
	flags := pflag.NewFlagSet("classify", pflag.ContinueOnError)
	response := flags.String("response", "", "response text used for context bonuses")
	tools := flags.StringSlice("tools", nil, "tools used while answering")
	if err := flags.Parse(args); err != nil {
		return err
	}

	prompt := strings.Join(flags.Args(), " ")
	if prompt == "" || prompt == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read prompt: %w", err)
		}
		prompt = string(data)
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt must not be empty")
	}

	hints := classifier.HintsFromResponse(*response)
	hints.ToolsUsed = *tools
	result := classifier.Default().Classify(prompt, hints)

	fmt.Printf("%s %.2f\n", result.TaskType, result.Confidence)
	for _, taskType := range models.TaskTypes {
		fmt.Printf("  %-9s score=%.3f hits=%d\n", taskType, result.Scores[taskType], result.RawHits[taskType])
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	flags := commonFlags("serve")
	flags.String("port", "", "HTTP listen port")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	if err := cfg.RequireJWT(); err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	in := openInfra(ctx, cfg, logger)
	defer in.Close()

	evaluation, executor, err := in.evaluationService(cfg)
	if err != nil {
		return err
	}
	defer executor.Close()

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:    logger,
		AccessLog: cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		ClassifyHandler:  handler.NewClassifyHandler(classifier.Default(), in.validate, logger),
		DomainHandler:    handler.NewDomainHandler(in.registry, logger),
		BenchmarkHandler: handler.NewBenchmarkHandler(evaluation, in.validate, logger),
		DatasetHandler:   handler.NewDatasetHandler(in.curationService(cfg), in.validate, logger),
		HealthChecks:     in.healthChecks(),
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("http server listening")
		errCh <- app.Listen(cfg.HTTPAddress())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
