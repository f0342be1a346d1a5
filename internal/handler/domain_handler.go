package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/dto"
	"github.com/noah-isme/forge/internal/utils"
)

// DomainHandler exposes the resolved domain configurations.
type DomainHandler struct {
	registry *domain.Registry
	logger   zerolog.Logger
}

// NewDomainHandler builds a domain handler.
func NewDomainHandler(registry *domain.Registry, logger zerolog.Logger) *DomainHandler {
	return &DomainHandler{
		registry: registry,
		logger:   logger.With().Str("component", "domain_handler").Logger(),
	}
}

// Register wires the handler routes into the router group.
func (h *DomainHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:domain", h.get)
}

func (h *DomainHandler) list(c *fiber.Ctx) error {
	configs, err := h.registry.List()
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to resolve domains")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to resolve domains")
	}

	responses := make([]dto.DomainResponse, 0, len(configs))
	for _, cfg := range configs {
		responses = append(responses, dto.NewDomainResponse(cfg))
	}
	return utils.SendSuccess(c, "domains retrieved", responses)
}

func (h *DomainHandler) get(c *fiber.Ctx) error {
	cfg, err := h.registry.Get(c.Params("domain"))
	if err != nil {
		status := statusForError(err)
		if status == fiber.StatusInternalServerError {
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to resolve domain")
			return utils.SendError(c, status, "failed to resolve domain")
		}
		return utils.SendError(c, status, err.Error())
	}
	return utils.SendSuccess(c, "domain retrieved", dto.NewDomainResponse(cfg))
}
