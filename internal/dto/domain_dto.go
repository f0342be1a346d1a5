package dto

import (
	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/models"
)

// DomainResponse summarises a resolved domain configuration.
type DomainResponse struct {
	ID                domain.ID         `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	DefaultModel      string            `json:"default_model"`
	AcceptedTaskTypes []models.TaskType `json:"task_types"`
	SplitRatio        float64           `json:"split_ratio"`
	MinExamples       int               `json:"min_examples"`
	CodeDomain        bool              `json:"code_domain"`
	Weights           domain.Weights    `json:"weights"`
	Quality           domain.Quality    `json:"quality"`
}

// NewDomainResponse maps a domain configuration.
func NewDomainResponse(cfg domain.Config) DomainResponse {
	return DomainResponse{
		ID:                cfg.ID,
		Name:              cfg.Name,
		Description:       cfg.Description,
		DefaultModel:      cfg.DefaultModel(),
		AcceptedTaskTypes: cfg.AcceptedTaskTypes,
		SplitRatio:        cfg.SplitRatio,
		MinExamples:       cfg.MinExamples,
		CodeDomain:        cfg.IsCodeDomain(),
		Weights:           cfg.Eval.Weights,
		Quality:           cfg.Quality,
	}
}
