// Package ai talks to chat-completion model endpoints.
package ai

import (
	"context"
	"time"
)

// GenerateRequest is a single-turn prompt sent to a model.
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
}

// GenerateResponse carries the assistant reply.
type GenerateResponse struct {
	Content          string
	Model            string
	Duration         time.Duration
	PromptTokens     int
	CompletionTokens int
}

// Generator produces model responses for benchmark prompts.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}
