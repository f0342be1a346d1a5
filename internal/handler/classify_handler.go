package handler

import (
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forge/internal/classifier"
	"github.com/noah-isme/forge/internal/dto"
	"github.com/noah-isme/forge/internal/utils"
)

// ClassifyHandler exposes the task-type classifier.
type ClassifyHandler struct {
	classifier *classifier.Classifier
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewClassifyHandler builds a classify handler.
func NewClassifyHandler(cls *classifier.Classifier, validate *validator.Validate, logger zerolog.Logger) *ClassifyHandler {
	if cls == nil {
		cls = classifier.Default()
	}
	return &ClassifyHandler{
		classifier: cls,
		validator:  validate,
		logger:     logger.With().Str("component", "classify_handler").Logger(),
	}
}

// Register wires the handler routes into the router group.
func (h *ClassifyHandler) Register(router fiber.Router) {
	router.Post("", h.classify)
}

func (h *ClassifyHandler) classify(c *fiber.Ctx) error {
	var req dto.ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	hints := classifier.Hints{ToolsUsed: req.ToolsUsed}
	if req.Response != "" {
		hints = classifier.HintsFromResponse(req.Response)
		hints.ToolsUsed = req.ToolsUsed
	}

	result := h.classifier.Classify(req.Prompt, hints)
	requestLogger(h.logger, c).Debug().
		Str("task_type", string(result.TaskType)).
		Float64("confidence", result.Confidence).
		Int("prompt_chars", utf8.RuneCountInString(req.Prompt)).
		Msg("prompt classified")

	return utils.SendSuccess(c, "prompt classified", dto.NewClassifyResponse(result))
}
