package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/forge/internal/config"
	"github.com/noah-isme/forge/internal/handler"
	"github.com/noah-isme/forge/internal/middleware"
	"github.com/noah-isme/forge/internal/observability"
)

const (
	pipelineRateLimit  = 2
	pipelineRateWindow = time.Minute
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ClassifyHandler  *handler.ClassifyHandler
	DomainHandler    *handler.DomainHandler
	BenchmarkHandler *handler.BenchmarkHandler
	DatasetHandler   *handler.DatasetHandler
	HealthChecks     map[string]handler.DependencyCheck
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	// Pipeline runs require a token and are throttled per subject.
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ClassifyHandler != nil {
		deps.ClassifyHandler.Register(api.Group("/classify"))
	}

	if deps.DomainHandler != nil {
		deps.DomainHandler.Register(api.Group("/domains"))
	}

	if deps.BenchmarkHandler != nil {
		deps.BenchmarkHandler.Register(api.Group("/benchmarks"),
			jwtMiddleware,
			middleware.RateLimit("benchmark_run", pipelineRateLimit, pipelineRateWindow),
		)
	}

	if deps.DatasetHandler != nil {
		deps.DatasetHandler.Register(api.Group("/datasets"),
			jwtMiddleware,
			middleware.RateLimit("dataset_prepare", pipelineRateLimit, pipelineRateWindow),
		)
	}
}
