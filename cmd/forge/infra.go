package main

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/forge/internal/config"
	"github.com/noah-isme/forge/internal/database"
	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/handler"
	"github.com/noah-isme/forge/internal/repository"
	"github.com/noah-isme/forge/internal/service"
	"github.com/noah-isme/forge/pkg/ai"
	cloud "github.com/noah-isme/forge/pkg/cloudinary"
	"github.com/noah-isme/forge/pkg/sandbox"
)

const connectTimeout = 5 * time.Second

// infra holds the optional backing services. Any of them may be nil.
type infra struct {
	db       *gorm.DB
	redis    *redis.Client
	nats     *nats.Conn
	uploader *cloud.Uploader
	validate *validator.Validate
	registry *domain.Registry
	logger   zerolog.Logger
}

// openInfra connects to whatever is configured. Connection failures are logged and the service is left out.
func openInfra(ctx context.Context, cfg config.Config, logger zerolog.Logger) *infra {
	validate := validator.New(validator.WithRequiredStructEnabled())
	in := &infra{
		validate: validate,
		registry: domain.NewRegistry(cfg.DomainsDir, validate),
		logger:   logger,
	}

	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err == nil {
			err = database.Migrate(db)
		}
		if err != nil {
			logger.Warn().Err(err).Msg("run tracking disabled")
		} else {
			in.db = db
		}
	}

	if cfg.RedisURL != "" {
		dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		client, err := database.ConnectRedis(dialCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("summary cache disabled")
		} else {
			in.redis = client
		}
	}

	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("event publishing disabled")
		} else {
			in.nats = conn
		}
	}

	if cfg.ArtifactUploadEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("artifact upload disabled")
		} else {
			in.uploader = uploader
		}
	}

	return in
}

func (in *infra) Close() {
	if in.nats != nil {
		in.nats.Close()
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			in.logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if in.db != nil {
		if sqlDB, err := in.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func (in *infra) events() service.EventPublisher {
	return service.NewEventPublisher(in.nats, in.logger)
}

func (in *infra) curationService(cfg config.Config) service.CurationService {
	var builds repository.DatasetBuildRepository
	if in.db != nil {
		builds = repository.NewDatasetBuildRepository(in.db)
	}

	var uploader service.ArtifactUploader
	if in.uploader != nil {
		uploader = in.uploader
	}

	return service.NewCurationService(in.registry, nil, builds, in.events(), uploader, service.CurationSettings{
		Sources:   sourcesFor(cfg),
		OutputDir: cfg.OutputDir,
	}, in.logger)
}

// evaluationService also returns the executor so the caller can release it.
func (in *infra) evaluationService(cfg config.Config) (service.EvaluationService, sandbox.RunCloser, error) {
	executor, err := sandbox.Open(sandbox.Config{
		Kind:          sandbox.Kind(cfg.ExecutorKind),
		Host:          cfg.DockerHost,
		Timeout:       cfg.ExecutionTimeout,
		MemoryLimitMB: int64(cfg.CodeRunMemoryMB),
		CPUShares:     int64(cfg.CodeRunCPUShares),
		Logger:        in.logger,
	})
	if err != nil {
		return nil, nil, err
	}

	generator := ai.NewOpenAIGenerator(ai.OpenAIConfig{
		BaseURL:        cfg.ModelBaseURL,
		APIKey:         cfg.ModelAPIKey,
		Model:          cfg.Model,
		MaxTokens:      cfg.ModelMaxTokens,
		RequestTimeout: cfg.ModelTimeout,
		Logger:         in.logger,
	})

	var runs repository.BenchmarkRunRepository
	if in.db != nil {
		runs = repository.NewBenchmarkRunRepository(in.db)
	}

	svc := service.NewEvaluationService(in.registry, generator, executor, runs, in.redis, in.events(), in.validate, service.EvaluationSettings{
		BenchmarkDir: cfg.BenchmarkDir,
		ResultsDir:   cfg.ResultsDir,
		TestTimeout:  cfg.ExecutionTimeout,
		CacheTTL:     cfg.SummaryCacheTTL,
	}, in.logger)
	return svc, executor, nil
}

// healthChecks pings the services that were actually connected.
func (in *infra) healthChecks() map[string]handler.DependencyCheck {
	checks := map[string]handler.DependencyCheck{}
	if in.db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := in.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if in.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return in.redis.Ping(ctx).Err()
		}
	}
	if in.nats != nil {
		checks["nats"] = func(context.Context) error {
			if !in.nats.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		}
	}
	return checks
}
