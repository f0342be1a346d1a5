package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forge/internal/dto"
	"github.com/noah-isme/forge/internal/service"
	"github.com/noah-isme/forge/internal/utils"
)

// DatasetHandler exposes dataset curation.
type DatasetHandler struct {
	service   service.CurationService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewDatasetHandler builds a dataset handler.
func NewDatasetHandler(svc service.CurationService, validate *validator.Validate, logger zerolog.Logger) *DatasetHandler {
	return &DatasetHandler{
		service:   svc,
		validator: validate,
		logger:    logger.With().Str("component", "dataset_handler").Logger(),
	}
}

// Register wires the handler routes. guard runs before the route that starts curation.
func (h *DatasetHandler) Register(router fiber.Router, guard ...fiber.Handler) {
	router.Get("/builds", h.builds)
	router.Post("/:domain/prepare", append(guard, h.prepare)...)
}

func (h *DatasetHandler) builds(c *fiber.Ctx) error {
	limit := listLimit(c)
	builds, err := h.service.Builds(c.UserContext(), c.Query("domain"), limit)
	if err != nil {
		status := statusForError(err)
		if status == fiber.StatusInternalServerError {
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to list dataset builds")
			return utils.SendError(c, status, "failed to retrieve dataset builds")
		}
		return utils.SendError(c, status, err.Error())
	}
	return utils.OK(c, builds, "dataset builds retrieved", dto.ListMeta{Limit: limit, Count: len(builds)})
}

func (h *DatasetHandler) prepare(c *fiber.Ctx) error {
	var req dto.PrepareDatasetRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	result, err := h.service.Prepare(c.UserContext(), service.PrepareRequest{
		Domain:      c.Params("domain"),
		TaskType:    req.TaskType,
		MinExamples: req.MinExamples,
		SplitRatio:  req.SplitRatio,
		Seed:        req.Seed,
	})
	if err != nil {
		status := statusForError(err)
		if status == fiber.StatusInternalServerError {
			requestLogger(h.logger, c).Error().Err(err).Str("domain", c.Params("domain")).Msg("dataset preparation failed")
			return utils.SendError(c, status, "dataset preparation failed")
		}
		return utils.SendError(c, status, err.Error())
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "dataset prepared", result)
}
