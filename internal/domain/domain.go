// Package domain holds the closed set of training domains and their read-only configuration records.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/forge/internal/models"
)

// ID identifies a training domain.
type ID string

// Known domains.
const (
	Coding    ID = "coding"
	Reasoning ID = "reasoning"
	Tools     ID = "tools"
	Chat      ID = "chat"
)

// Default is the domain that receives records without a task type.
const Default = Coding

// IDs lists every known domain.
var IDs = []ID{Coding, Reasoning, Tools, Chat}

// ErrUnknownDomain indicates a domain id outside the known set.
var ErrUnknownDomain = errors.New("unknown domain")

// ParseID validates a raw domain id.
func ParseID(value string) (ID, error) {
	candidate := ID(strings.ToLower(strings.TrimSpace(value)))
	for _, id := range IDs {
		if candidate == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, value)
}

// Weights are the maximum points of each benchmark rubric.
type Weights struct {
	Structure    float64 `json:"structure" validate:"gte=0"`
	Correctness  float64 `json:"correctness" validate:"gte=0"`
	Similarity   float64 `json:"similarity" validate:"gte=0"`
	Completeness float64 `json:"completeness" validate:"gte=0"`
}

// Total returns the maximum achievable score.
func (w Weights) Total() float64 {
	return w.Structure + w.Correctness + w.Similarity + w.Completeness
}

// UnmarshalJSON accepts each rubric either as a bare number or as an object
// such as {"weight": 25}. Rubrics missing from data keep their current value.
func (w *Weights) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	fields := map[string]*float64{
		"structure":    &w.Structure,
		"correctness":  &w.Correctness,
		"similarity":   &w.Similarity,
		"completeness": &w.Completeness,
	}
	for name, target := range fields {
		value, ok := raw[name]
		if !ok {
			continue
		}
		weight, err := parseWeight(value)
		if err != nil {
			return fmt.Errorf("scoring.%s: %w", name, err)
		}
		*target = weight
	}
	return nil
}

func parseWeight(data json.RawMessage) (float64, error) {
	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		return number, nil
	}
	var nested struct {
		Weight *float64 `json:"weight"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return 0, err
	}
	if nested.Weight == nil {
		return 0, errors.New("missing weight")
	}
	return *nested.Weight, nil
}

// DefaultWeights is the 25/40/20/15 rubric split.
var DefaultWeights = Weights{Structure: 25, Correctness: 40, Similarity: 20, Completeness: 15}

// Quality holds the filter thresholds applied to distillation records.
type Quality struct {
	MinResponseLength int `json:"min_response_length" validate:"gte=0"`
	MinCodeBlocks     int `json:"min_code_blocks" validate:"gte=0"`
	MaxTotalChars     int `json:"max_total_chars" validate:"gt=0"`
}

// Eval configures benchmark scoring for a domain.
type Eval struct {
	HasExecutableTests bool     `json:"has_executable_tests"`
	Weights            Weights  `json:"scoring"`
	KeywordChecks      []string `json:"keyword_checks"`
}

// Config is the resolved configuration of one domain. The pipeline only reads it.
type Config struct {
	ID                ID                `json:"id" validate:"required"`
	Name              string            `json:"name" validate:"required"`
	Description       string            `json:"description"`
	ModelPrefix       string            `json:"model_prefix" validate:"required"`
	AcceptedTaskTypes []models.TaskType `json:"task_types" validate:"required,min=1,dive,oneof=coding reasoning tools chat"`
	MinPromptLength   int               `json:"min_prompt_length" validate:"gte=0"`
	MinResponseLength int               `json:"min_response_length" validate:"gte=0"`
	SplitRatio        float64           `json:"split_ratio" validate:"gt=0,lte=1"`
	MinExamples       int               `json:"min_examples" validate:"gte=1"`
	SystemPrompt      string            `json:"system_prompt" validate:"required"`
	Quality           Quality           `json:"quality"`
	Eval              Eval              `json:"eval"`
}

// Accepts reports whether records of the given task type are routed to this domain.
func (c Config) Accepts(taskType models.TaskType) bool {
	for _, accepted := range c.AcceptedTaskTypes {
		if accepted == taskType {
			return true
		}
	}
	return false
}

// WithTaskTypes returns a copy restricted to the given task types.
func (c Config) WithTaskTypes(types ...models.TaskType) Config {
	if len(types) == 0 {
		return c
	}
	c.AcceptedTaskTypes = append([]models.TaskType(nil), types...)
	return c
}

// IsCodeDomain reports whether benchmark answers are expected to contain runnable code.
func (c Config) IsCodeDomain() bool {
	return c.Eval.HasExecutableTests
}

// DefaultModel is the model tag evaluated when none is given.
func (c Config) DefaultModel() string {
	return c.ModelPrefix + ":latest"
}
