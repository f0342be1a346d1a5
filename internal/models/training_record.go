package models

import "strings"

// SourceKind identifies which ingestion path produced a record.
type SourceKind string

// Supported record sources.
const (
	SourceDistillation  SourceKind = "distillation"
	SourceGroundTruth   SourceKind = "ground_truth"
	SourceSelfIteration SourceKind = "self_iteration"
	SourceToolTrace     SourceKind = "tool_trace"
)

// TaskType is the classifier category of a record.
type TaskType string

// Task types in their fixed evaluation order.
const (
	TaskTypeCoding    TaskType = "coding"
	TaskTypeReasoning TaskType = "reasoning"
	TaskTypeTools     TaskType = "tools"
	TaskTypeChat      TaskType = "chat"
)

// TaskTypes lists every category in the order used for tie-breaks.
var TaskTypes = []TaskType{TaskTypeCoding, TaskTypeReasoning, TaskTypeTools, TaskTypeChat}

// ParseTaskType normalises a raw task type string. It returns false when the value is not a known category.
func ParseTaskType(value string) (TaskType, bool) {
	candidate := TaskType(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range TaskTypes {
		if candidate == known {
			return known, true
		}
	}
	return "", false
}

// Metadata keys attached by the loader.
const (
	MetaToolsUsed  = "tools_used"
	MetaIterations = "iterations"
	MetaTaskID     = "task_id"
	MetaSourceFile = "source_file"
)

// TrainingRecord is the unit of curation shared by every pipeline stage.
type TrainingRecord struct {
	Prompt                   string                 `json:"prompt"`
	ResponsePrimary          string                 `json:"response_primary"`
	ResponseSecondary        string                 `json:"response_secondary,omitempty"`
	SourceKind               SourceKind             `json:"source_kind"`
	TaskType                 TaskType               `json:"task_type,omitempty"`
	ClassificationConfidence *float64               `json:"classification_confidence,omitempty"`
	Metadata                 map[string]interface{} `json:"metadata,omitempty"`
}

// IsClassified reports whether a task type has been attached.
func (r TrainingRecord) IsClassified() bool {
	return r.TaskType != ""
}

// IsPreFiltered reports whether the record came from a trace path that was already gated at ingestion.
func (r TrainingRecord) IsPreFiltered() bool {
	return r.SourceKind == SourceSelfIteration || r.SourceKind == SourceToolTrace
}

// ToolsUsed returns the tool names recorded in metadata, if any.
func (r TrainingRecord) ToolsUsed() []string {
	if r.Metadata == nil {
		return nil
	}
	switch tools := r.Metadata[MetaToolsUsed].(type) {
	case []string:
		return tools
	case []interface{}:
		names := make([]string, 0, len(tools))
		for _, tool := range tools {
			if name, ok := tool.(string); ok {
				names = append(names, name)
			}
		}
		return names
	default:
		return nil
	}
}

// ClassificationResult is the outcome of a single classifier call.
type ClassificationResult struct {
	TaskType   TaskType             `json:"type"`
	Scores     map[TaskType]float64 `json:"scores"`
	RawHits    map[TaskType]int     `json:"raw_hits"`
	Confidence float64              `json:"confidence"`
}
