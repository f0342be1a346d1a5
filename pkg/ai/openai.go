package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "forge",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of model generation requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"model"})

	generateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forge",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of failed model generation requests",
	}, []string{"model"})
)

// DefaultBaseURL is the OpenAI-compatible endpoint of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434/v1"

// DefaultRequestTimeout bounds one generation request.
const DefaultRequestTimeout = 120 * time.Second

// ErrEmptyCompletion is returned when the endpoint answers without choices.
var ErrEmptyCompletion = errors.New("no choices returned from model")

// OpenAIConfig defines configuration options for an OpenAI-compatible generator.
type OpenAIConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	MaxTokens      int
	Temperature    float32
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// OpenAIGenerator implements Generator against any OpenAI-compatible chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a generator. Local endpoints do not need an API key.
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "ollama"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/forge/pkg/ai"),
		logger: cfg.Logger.With().Str("component", "ai").Logger(),
	}
}

// Generate sends the system and user turns and returns the first choice.
func (g *OpenAIGenerator) Generate(parent context.Context, req GenerateRequest) (GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = g.cfg.Model
	}
	if model == "" {
		return GenerateResponse{}, errors.New("model is required")
	}

	ctx, span := g.tracer.Start(parent, "ai.generate", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages:    messages,
	})
	duration := time.Since(start)
	generateDuration.WithLabelValues(model).Observe(duration.Seconds())
	if err != nil {
		generateFailures.WithLabelValues(model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GenerateResponse{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		generateFailures.WithLabelValues(model).Inc()
		span.SetStatus(codes.Error, ErrEmptyCompletion.Error())
		return GenerateResponse{}, ErrEmptyCompletion
	}

	g.logger.Debug().
		Str("model", model).
		Dur("duration", duration).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("generation completed")

	return GenerateResponse{
		Content:          resp.Choices[0].Message.Content,
		Model:            model,
		Duration:         duration,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
