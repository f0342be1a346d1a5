package models

import (
	"bytes"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// literalText decodes a JSON scalar as text: strings are unquoted, other values keep their literal form and null is empty.
func literalText(data []byte) (string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] != '"' {
		return string(trimmed), nil
	}
	var value string
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return "", err
	}
	return value, nil
}

// ExpectedOutput is the expected stdout of a test case. Non-string JSON values are kept as their literal text.
type ExpectedOutput string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (e *ExpectedOutput) UnmarshalJSON(data []byte) error {
	value, err := literalText(data)
	if err != nil {
		return err
	}
	*e = ExpectedOutput(value)
	return nil
}

// UnknownTaskID names tasks whose line carries no id.
const UnknownTaskID TaskID = "unknown"

// TaskID identifies a benchmark task. Numeric ids such as 7 are read as "7".
type TaskID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	value, err := literalText(data)
	if err != nil {
		return err
	}
	*id = TaskID(value)
	return nil
}

// TestCase is a snippet appended to candidate code and executed.
type TestCase struct {
	Code     string         `json:"code"`
	Expected ExpectedOutput `json:"expected"`
}

// BenchmarkTask is one immutable benchmark entry.
type BenchmarkTask struct {
	ID           TaskID     `json:"id" validate:"required"`
	Category     string     `json:"category"`
	Prompt       string     `json:"prompt" validate:"required"`
	Language     string     `json:"language,omitempty"`
	TestCases    []TestCase `json:"test_cases"`
	Requirements []string   `json:"requirements"`
	GoldAnswer   string     `json:"gold_answer,omitempty"`
}

// BenchmarkResult holds the four sub-scores of a single evaluated task.
type BenchmarkResult struct {
	TaskID            string  `json:"task_id"`
	Category          string  `json:"category"`
	TotalScore        float64 `json:"total_score"`
	StructureScore    float64 `json:"structure_score"`
	CorrectnessScore  float64 `json:"correctness_score"`
	SimilarityScore   float64 `json:"similarity_score"`
	CompletenessScore float64 `json:"completeness_score"`
	DurationSeconds   float64 `json:"duration_seconds"`
	ResponseLength    int     `json:"response_length"`
	HasCode           bool    `json:"has_code"`
}

// Comparison statuses for consecutive benchmark runs.
const (
	ComparisonBaseline    = "baseline"
	ComparisonRegression  = "regression"
	ComparisonImprovement = "improvement"
	ComparisonStable      = "stable"
)

// Comparison describes how a run relates to the preceding run of the same domain.
type Comparison struct {
	Status          string  `json:"status"`
	PreviousVersion string  `json:"previous_version,omitempty"`
	PreviousScore   float64 `json:"previous_score"`
	CurrentScore    float64 `json:"current_score"`
	Delta           float64 `json:"delta"`
}

// IsRegression reports whether the run was flagged as a regression.
func (c Comparison) IsRegression() bool {
	return c.Status == ComparisonRegression
}

// RunSummary is the versioned result document of a benchmark run.
type RunSummary struct {
	RunID             string             `json:"run_id,omitempty"`
	Version           string             `json:"version"`
	Model             string             `json:"model,omitempty"`
	Domain            string             `json:"domain"`
	EvaluatedAt       time.Time          `json:"evaluated_at"`
	TasksEvaluated    int                `json:"tasks_evaluated"`
	OverallScore      float64            `json:"overall_score"`
	StructureScore    float64            `json:"structure_score"`
	CorrectnessScore  float64            `json:"correctness_score"`
	SimilarityScore   float64            `json:"similarity_score"`
	CompletenessScore float64            `json:"completeness_score"`
	Categories        map[string]float64 `json:"categories"`
	Results           []BenchmarkResult  `json:"results"`
	Comparison        *Comparison        `json:"comparison,omitempty"`
}

// BenchmarkRun is the persisted record of a benchmark run.
type BenchmarkRun struct {
	ID                uint              `gorm:"primaryKey" json:"id"`
	RunID             string            `gorm:"size:64;uniqueIndex;not null" json:"run_id"`
	Domain            string            `gorm:"size:32;index;not null" json:"domain"`
	Version           string            `gorm:"size:64;not null" json:"version"`
	Model             string            `gorm:"size:128" json:"model"`
	TasksEvaluated    int               `gorm:"not null" json:"tasks_evaluated"`
	OverallScore      float64           `gorm:"not null" json:"overall_score"`
	StructureScore    float64           `json:"structure_score"`
	CorrectnessScore  float64           `json:"correctness_score"`
	SimilarityScore   float64           `json:"similarity_score"`
	CompletenessScore float64           `json:"completeness_score"`
	Categories        datatypes.JSONMap `json:"categories"`
	Regression        bool              `gorm:"default:false" json:"regression"`
	ResultFile        string            `gorm:"size:512" json:"result_file"`
	EvaluatedAt       time.Time         `gorm:"index" json:"evaluated_at"`
	CreatedAt         time.Time         `json:"created_at"`
}

// NewBenchmarkRun converts a summary to its persisted form.
func NewBenchmarkRun(summary RunSummary, resultFile string) BenchmarkRun {
	categories := datatypes.JSONMap{}
	for name, score := range summary.Categories {
		categories[name] = score
	}

	regression := summary.Comparison != nil && summary.Comparison.IsRegression()

	return BenchmarkRun{
		RunID:             summary.RunID,
		Domain:            summary.Domain,
		Version:           summary.Version,
		Model:             summary.Model,
		TasksEvaluated:    summary.TasksEvaluated,
		OverallScore:      summary.OverallScore,
		StructureScore:    summary.StructureScore,
		CorrectnessScore:  summary.CorrectnessScore,
		SimilarityScore:   summary.SimilarityScore,
		CompletenessScore: summary.CompletenessScore,
		Categories:        categories,
		Regression:        regression,
		ResultFile:        resultFile,
		EvaluatedAt:       summary.EvaluatedAt,
	}
}

// DatasetBuild records one curation run.
type DatasetBuild struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	BuildID      string            `gorm:"size:64;uniqueIndex;not null" json:"build_id"`
	Domain       string            `gorm:"size:32;index;not null" json:"domain"`
	Loaded       int               `json:"loaded"`
	Routed       int               `json:"routed"`
	Accepted     int               `json:"accepted"`
	UniqueCount  int               `json:"unique_count"`
	TrainCount   int               `json:"train_count"`
	ValidCount   int               `json:"valid_count"`
	TestCount    int               `json:"test_count"`
	SkippedLines int               `json:"skipped_lines"`
	Distribution datatypes.JSONMap `json:"distribution"`
	Rejections   datatypes.JSONMap `json:"rejections"`
	OutputDir    string            `gorm:"size:512" json:"output_dir"`
	CreatedAt    time.Time         `json:"created_at"`
}
