package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forge/internal/dto"
	"github.com/noah-isme/forge/internal/service"
	"github.com/noah-isme/forge/internal/utils"
)

// BenchmarkHandler exposes benchmark runs.
type BenchmarkHandler struct {
	service   service.EvaluationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewBenchmarkHandler builds a benchmark handler.
func NewBenchmarkHandler(svc service.EvaluationService, validate *validator.Validate, logger zerolog.Logger) *BenchmarkHandler {
	return &BenchmarkHandler{
		service:   svc,
		validator: validate,
		logger:    logger.With().Str("component", "benchmark_handler").Logger(),
	}
}

// Register wires the handler routes. guard runs before the route that starts a run.
func (h *BenchmarkHandler) Register(router fiber.Router, guard ...fiber.Handler) {
	router.Get("/:domain/runs", h.list)
	router.Get("/:domain/latest", h.latest)
	router.Post("/:domain/runs", append(guard, h.run)...)
}

func (h *BenchmarkHandler) list(c *fiber.Ctx) error {
	limit := listLimit(c)
	runs, err := h.service.Runs(c.UserContext(), c.Params("domain"), limit)
	if err != nil {
		return h.fail(c, err, "failed to retrieve benchmark runs")
	}

	responses := dto.NewBenchmarkRunResponses(runs)
	return utils.OK(c, responses, "benchmark runs retrieved", dto.ListMeta{Limit: limit, Count: len(responses)})
}

func (h *BenchmarkHandler) latest(c *fiber.Ctx) error {
	run, err := h.service.Latest(c.UserContext(), c.Params("domain"))
	if err != nil {
		return h.fail(c, err, "failed to retrieve latest benchmark run")
	}
	return utils.SendSuccess(c, "latest benchmark run retrieved", dto.NewBenchmarkRunResponse(run))
}

func (h *BenchmarkHandler) run(c *fiber.Ctx) error {
	var req dto.RunBenchmarkRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	result, err := h.service.Evaluate(c.UserContext(), service.EvaluateRequest{
		Domain:  c.Params("domain"),
		Model:   req.Model,
		Version: req.Version,
	})
	if err != nil {
		return h.fail(c, err, "benchmark run failed")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "benchmark run completed", result)
}

func (h *BenchmarkHandler) fail(c *fiber.Ctx, err error, message string) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		requestLogger(h.logger, c).Error().Err(err).Str("domain", c.Params("domain")).Msg(message)
		return utils.SendError(c, status, message)
	}
	return utils.SendError(c, status, err.Error())
}
