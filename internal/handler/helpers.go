package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forge/internal/benchmark"
	"github.com/noah-isme/forge/internal/dataset"
	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/middleware"
	"github.com/noah-isme/forge/internal/service"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func listLimit(c *fiber.Ctx) int {
	limit, err := parseQueryInt(c, "limit")
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func validationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

// statusForError maps pipeline errors onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownDomain),
		errors.Is(err, benchmark.ErrNoTasks),
		errors.Is(err, service.ErrRunNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidTaskType):
		return fiber.StatusBadRequest
	case errors.Is(err, dataset.ErrInsufficientExamples):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
