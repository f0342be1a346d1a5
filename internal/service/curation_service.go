package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/forge/internal/classifier"
	"github.com/noah-isme/forge/internal/dataset"
	"github.com/noah-isme/forge/internal/dedup"
	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/loader"
	"github.com/noah-isme/forge/internal/models"
	"github.com/noah-isme/forge/internal/observability"
	"github.com/noah-isme/forge/internal/quality"
	"github.com/noah-isme/forge/internal/repository"
)

// ErrInvalidTaskType indicates a task type override outside the known categories.
var ErrInvalidTaskType = errors.New("invalid task type")

// PrepareRequest selects the domain of a curation run and its optional overrides.
type PrepareRequest struct {
	Domain      string  `json:"domain"`
	TaskType    string  `json:"task_type,omitempty"`
	MinExamples int     `json:"min_examples,omitempty" validate:"gte=0"`
	SplitRatio  float64 `json:"split_ratio,omitempty" validate:"gte=0,lte=1"`
	Seed        int64   `json:"seed,omitempty"`
}

// PrepareResult reports what a curation run loaded, kept and wrote.
type PrepareResult struct {
	BuildID      string            `json:"build_id"`
	Domain       domain.ID         `json:"domain"`
	OutputDir    string            `json:"output_dir"`
	Files        dataset.Files     `json:"files"`
	Load         loader.Stats      `json:"load"`
	Distribution map[string]int    `json:"distribution"`
	Filter       quality.Report    `json:"filter"`
	Unique       int               `json:"unique"`
	Duplicates   int               `json:"duplicates"`
	Train        int               `json:"train"`
	Valid        int               `json:"valid"`
	Test         int               `json:"test"`
	Artifacts    map[string]string `json:"artifacts,omitempty"`
}

// CurationSettings locates curation inputs and outputs.
type CurationSettings struct {
	Sources   loader.Sources
	OutputDir string
}

// CurationService runs loader, classifier, filter, dedup and assembler for one domain.
type CurationService interface {
	Prepare(ctx context.Context, req PrepareRequest) (PrepareResult, error)
	Builds(ctx context.Context, domain string, limit int) ([]models.DatasetBuild, error)
}

type curationService struct {
	registry   *domain.Registry
	classifier *classifier.Classifier
	builds     repository.DatasetBuildRepository
	events     EventPublisher
	uploader   ArtifactUploader
	settings   CurationSettings
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewCurationService constructs a curation service. builds, events and uploader are optional.
func NewCurationService(registry *domain.Registry, cls *classifier.Classifier, builds repository.DatasetBuildRepository, events EventPublisher, uploader ArtifactUploader, settings CurationSettings, logger zerolog.Logger) CurationService {
	if cls == nil {
		cls = classifier.Default()
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &curationService{
		registry:   registry,
		classifier: cls,
		builds:     builds,
		events:     events,
		uploader:   uploader,
		settings:   settings,
		logger:     logger.With().Str("component", "curation_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/forge/internal/service/curation"),
	}
}

func (s *curationService) Prepare(ctx context.Context, req PrepareRequest) (PrepareResult, error) {
	cfg, err := s.registry.Get(req.Domain)
	if err != nil {
		return PrepareResult{}, err
	}

	if req.TaskType != "" {
		taskType, ok := models.ParseTaskType(req.TaskType)
		if !ok {
			return PrepareResult{}, fmt.Errorf("%w: %q", ErrInvalidTaskType, req.TaskType)
		}
		cfg = cfg.WithTaskTypes(taskType)
	}

	ctx, span := s.tracer.Start(ctx, "curation.prepare", trace.WithAttributes(attribute.String("domain", string(cfg.ID))))
	defer span.End()

	result, err := s.prepare(ctx, cfg, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return PrepareResult{}, err
	}
	span.SetAttributes(attribute.Int("train", result.Train), attribute.Int("valid", result.Valid))
	return result, nil
}

func (s *curationService) prepare(ctx context.Context, cfg domain.Config, req PrepareRequest) (PrepareResult, error) {
	logger := s.logger.With().Str("domain", string(cfg.ID)).Logger()
	label := string(cfg.ID)

	records, stats, err := loader.New(cfg.MinResponseLength, logger).Load(ctx, s.settings.Sources)
	if err != nil {
		return PrepareResult{}, fmt.Errorf("load records: %w", err)
	}
	observability.CurationRecords().WithLabelValues(label, "loaded").Add(float64(len(records)))
	for source, counts := range stats.BySource() {
		lines := observability.LoaderLines()
		lines.WithLabelValues(label, source, "record").Add(float64(counts.Records))
		lines.WithLabelValues(label, source, "skipped").Add(float64(counts.Skipped))
		lines.WithLabelValues(label, source, "dropped").Add(float64(counts.Dropped))
		lines.WithLabelValues(label, source, "non_text").Add(float64(counts.NonText))
	}

	distribution := make(map[string]int, len(models.TaskTypes))
	for i := range records {
		s.classifier.ClassifyRecord(&records[i])
		distribution[string(records[i].TaskType)]++
	}
	logger.Info().Interface("distribution", distribution).Int("records", len(records)).Msg("records classified")

	accepted, report := quality.Evaluate(records, cfg)
	observability.CurationRecords().WithLabelValues(label, "routed").Add(float64(report.Routed))
	observability.CurationRecords().WithLabelValues(label, "accepted").Add(float64(report.Accepted))
	for reason, count := range report.Rejections {
		observability.CurationRejections().WithLabelValues(label, string(reason)).Add(float64(count))
	}
	logger.Info().
		Int("routed", report.Routed).
		Int("accepted", report.Accepted).
		Interface("rejections", report.Rejections).
		Msg("quality filter applied")

	unique, duplicates := dedup.Dedup(accepted)
	observability.CurationRecords().WithLabelValues(label, "unique").Add(float64(len(unique)))
	logger.Info().Int("unique", len(unique)).Int("duplicates", duplicates).Msg("records deduplicated")

	ds, err := dataset.Assemble(unique, cfg, dataset.Options{
		Seed:        req.Seed,
		SplitRatio:  req.SplitRatio,
		MinExamples: req.MinExamples,
	})
	if err != nil {
		return PrepareResult{}, err
	}

	outputDir := filepath.Join(s.settings.OutputDir, string(cfg.ID))
	files, err := dataset.Write(outputDir, ds)
	if err != nil {
		return PrepareResult{}, fmt.Errorf("write dataset: %w", err)
	}

	observability.DatasetExamples().WithLabelValues(label, "train").Set(float64(len(ds.Train)))
	observability.DatasetExamples().WithLabelValues(label, "valid").Set(float64(len(ds.Valid)))
	observability.DatasetExamples().WithLabelValues(label, "test").Set(float64(len(ds.Test)))

	result := PrepareResult{
		BuildID:      uuid.NewString(),
		Domain:       cfg.ID,
		OutputDir:    outputDir,
		Files:        files,
		Load:         stats,
		Distribution: distribution,
		Filter:       report,
		Unique:       len(unique),
		Duplicates:   duplicates,
		Train:        len(ds.Train),
		Valid:        len(ds.Valid),
		Test:         len(ds.Test),
	}

	logger.Info().
		Str("build_id", result.BuildID).
		Str("output_dir", outputDir).
		Int("train", result.Train).
		Int("valid", result.Valid).
		Int("test", result.Test).
		Msg("dataset written")

	result.Artifacts = s.uploadArtifacts(ctx, result)
	s.recordBuild(ctx, result)

	event := DatasetPreparedEvent{
		BuildID:    result.BuildID,
		Domain:     label,
		OutputDir:  outputDir,
		Train:      result.Train,
		Valid:      result.Valid,
		Test:       result.Test,
		PreparedAt: time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, SubjectDatasetPrepared, event); err != nil {
		logger.Warn().Err(err).Msg("failed to publish dataset event")
	}

	return result, nil
}

func (s *curationService) uploadArtifacts(ctx context.Context, result PrepareResult) map[string]string {
	if s.uploader == nil {
		return nil
	}

	artifacts := make(map[string]string, 3)
	for _, path := range []string{result.Files.Train, result.Files.Valid, result.Files.Test} {
		name := fmt.Sprintf("%s-%s-%s", result.Domain, result.BuildID, filepath.Base(path))
		url, err := uploadFile(ctx, s.uploader, name, path)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", path).Msg("failed to upload dataset artifact")
			continue
		}
		artifacts[filepath.Base(path)] = url
	}
	return artifacts
}

func (s *curationService) recordBuild(ctx context.Context, result PrepareResult) {
	if s.builds == nil {
		return
	}

	distribution := datatypes.JSONMap{}
	for taskType, count := range result.Distribution {
		distribution[taskType] = count
	}
	rejections := datatypes.JSONMap{}
	for reason, count := range result.Filter.Rejections {
		rejections[string(reason)] = count
	}

	build := models.DatasetBuild{
		BuildID:      result.BuildID,
		Domain:       string(result.Domain),
		Loaded:       result.Filter.Considered,
		Routed:       result.Filter.Routed,
		Accepted:     result.Filter.Accepted,
		UniqueCount:  result.Unique,
		TrainCount:   result.Train,
		ValidCount:   result.Valid,
		TestCount:    result.Test,
		SkippedLines: result.Load.Total().Skipped,
		Distribution: distribution,
		Rejections:   rejections,
		OutputDir:    result.OutputDir,
	}
	if err := s.builds.Create(ctx, &build); err != nil {
		s.logger.Warn().Err(err).Str("build_id", result.BuildID).Msg("failed to record dataset build")
	}
}

func (s *curationService) Builds(ctx context.Context, domainID string, limit int) ([]models.DatasetBuild, error) {
	if s.builds == nil {
		return []models.DatasetBuild{}, nil
	}
	if domainID != "" {
		id, err := domain.ParseID(domainID)
		if err != nil {
			return nil, err
		}
		domainID = string(id)
	}
	return s.builds.ListByDomain(ctx, domainID, limit)
}
