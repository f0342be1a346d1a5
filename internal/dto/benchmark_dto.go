package dto

import (
	"time"

	"github.com/noah-isme/forge/internal/models"
)

// RunBenchmarkRequest starts a benchmark run over HTTP.
type RunBenchmarkRequest struct {
	Model   string `json:"model" validate:"omitempty,max=128"`
	Version string `json:"version" validate:"omitempty,max=64,excludesall=/\\"`
}

// BenchmarkRunResponse is the API view of a recorded run.
type BenchmarkRunResponse struct {
	RunID             string                 `json:"run_id"`
	Domain            string                 `json:"domain"`
	Version           string                 `json:"version"`
	Model             string                 `json:"model"`
	TasksEvaluated    int                    `json:"tasks_evaluated"`
	OverallScore      float64                `json:"overall_score"`
	StructureScore    float64                `json:"structure_score"`
	CorrectnessScore  float64                `json:"correctness_score"`
	SimilarityScore   float64                `json:"similarity_score"`
	CompletenessScore float64                `json:"completeness_score"`
	Categories        map[string]interface{} `json:"categories"`
	Regression        bool                   `json:"regression"`
	EvaluatedAt       time.Time              `json:"evaluated_at"`
}

// NewBenchmarkRunResponse maps a persisted run.
func NewBenchmarkRunResponse(run models.BenchmarkRun) BenchmarkRunResponse {
	categories := map[string]interface{}{}
	for name, score := range run.Categories {
		categories[name] = score
	}

	return BenchmarkRunResponse{
		RunID:             run.RunID,
		Domain:            run.Domain,
		Version:           run.Version,
		Model:             run.Model,
		TasksEvaluated:    run.TasksEvaluated,
		OverallScore:      run.OverallScore,
		StructureScore:    run.StructureScore,
		CorrectnessScore:  run.CorrectnessScore,
		SimilarityScore:   run.SimilarityScore,
		CompletenessScore: run.CompletenessScore,
		Categories:        categories,
		Regression:        run.Regression,
		EvaluatedAt:       run.EvaluatedAt,
	}
}

// NewBenchmarkRunResponses maps a list of runs.
func NewBenchmarkRunResponses(runs []models.BenchmarkRun) []BenchmarkRunResponse {
	responses := make([]BenchmarkRunResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, NewBenchmarkRunResponse(run))
	}
	return responses
}
