package dto

import "github.com/noah-isme/forge/internal/models"

// ClassifyRequest carries free text and optional response evidence for classification.
type ClassifyRequest struct {
	Prompt    string   `json:"prompt" validate:"required,max=24000"`
	Response  string   `json:"response" validate:"max=100000"`
	ToolsUsed []string `json:"tools_used" validate:"max=32"`
}

// ClassifyResponse is the classifier verdict.
type ClassifyResponse struct {
	TaskType   models.TaskType             `json:"task_type"`
	Confidence float64                     `json:"confidence"`
	Scores     map[models.TaskType]float64 `json:"scores"`
	RawHits    map[models.TaskType]int     `json:"raw_hits"`
}

// NewClassifyResponse maps a classification result.
func NewClassifyResponse(result models.ClassificationResult) ClassifyResponse {
	return ClassifyResponse{
		TaskType:   result.TaskType,
		Confidence: result.Confidence,
		Scores:     result.Scores,
		RawHits:    result.RawHits,
	}
}
