// Package quality gates training records by domain routing and content heuristics.
//
// Length thresholds count characters, not bytes.
package quality

import (
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/models"
)

// Reason names why a record was rejected. The empty reason means accepted.
type Reason string

// Rejection reasons, in check order.
const (
	ReasonNone              Reason = ""
	ReasonWrongTaskType     Reason = "wrong_task_type"
	ReasonPromptTooShort    Reason = "prompt_too_short"
	ReasonTooLong           Reason = "too_long"
	ReasonGTWrongDomain     Reason = "gt_wrong_domain"
	ReasonGTTooShort        Reason = "gt_too_short"
	ReasonGTNoDiffMarkers   Reason = "gt_no_diff_markers"
	ReasonMissingResponse   Reason = "missing_response"
	ReasonPermissionGarbage Reason = "permission_garbage"
	ReasonErrorOutput       Reason = "error_output"
	ReasonTooShort          Reason = "too_short"
	ReasonNoCodeBlocks      Reason = "no_code_blocks"
)

const (
	minDiffLength          = 100
	permissionHitThreshold = 3
	codeFence              = "```"
)

var permissionPhrases = []string{
	"permission",
	"would you like me to proceed",
	"would you like me to create",
	"i need your approval",
	"approve",
	"i'll create the following files",
	"let me create",
	"i'll write",
	"permission_denials",
	"is_error",
	"tool_use_id",
}

var rawPayloadPrefixes = []string{`{"type":`, `{"result":`}

var errorMarkers = []string{`"is_error":true`, `"stop_reason":null`}

// IsPermissionGarbage reports whether a response is an approval request or a raw tool payload instead of an answer.
func IsPermissionGarbage(text string) bool {
	if text == "" {
		return true
	}
	lower := strings.ToLower(text)
	hits := 0
	for _, phrase := range permissionPhrases {
		if strings.Contains(lower, phrase) {
			hits++
		}
	}
	if hits >= permissionHitThreshold {
		return true
	}
	trimmed := strings.TrimSpace(text)
	for _, prefix := range rawPayloadPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// HasErrorOutput reports whether a response contains serialized error markers.
func HasErrorOutput(text string) bool {
	for _, marker := range errorMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// CountCodeBlocks counts fenced code blocks as pairs of fences.
func CountCodeBlocks(text string) int {
	return strings.Count(text, codeFence) / 2
}

// MatchesDomain reports whether a record is routed to the domain. Untyped records only go to the default domain.
func MatchesDomain(record models.TrainingRecord, cfg domain.Config) bool {
	if !record.IsClassified() {
		return cfg.ID == domain.Default
	}
	return cfg.Accepts(record.TaskType)
}

// Accepts runs the ordered quality checks and returns the first failing reason.
func Accepts(record models.TrainingRecord, cfg domain.Config) (bool, Reason) {
	if utf8.RuneCountInString(record.Prompt) < cfg.MinPromptLength {
		return false, ReasonPromptTooShort
	}
	if cfg.Quality.MaxTotalChars > 0 && utf8.RuneCountInString(record.Prompt)+utf8.RuneCountInString(record.ResponsePrimary) > cfg.Quality.MaxTotalChars {
		return false, ReasonTooLong
	}

	switch record.SourceKind {
	case models.SourceSelfIteration, models.SourceToolTrace:
		return true, ReasonNone
	case models.SourceGroundTruth:
		return acceptsGroundTruth(record.ResponsePrimary, cfg)
	}

	response := record.ResponsePrimary
	if response == "" || record.ResponseSecondary == "" {
		return false, ReasonMissingResponse
	}
	if IsPermissionGarbage(response) {
		return false, ReasonPermissionGarbage
	}
	if HasErrorOutput(response) {
		return false, ReasonErrorOutput
	}
	if utf8.RuneCountInString(response) < cfg.Quality.MinResponseLength {
		return false, ReasonTooShort
	}
	if cfg.Quality.MinCodeBlocks > 0 && CountCodeBlocks(response) < cfg.Quality.MinCodeBlocks {
		return false, ReasonNoCodeBlocks
	}
	return true, ReasonNone
}

func acceptsGroundTruth(diff string, cfg domain.Config) (bool, Reason) {
	if cfg.ID != domain.Coding {
		return false, ReasonGTWrongDomain
	}
	if utf8.RuneCountInString(diff) < minDiffLength {
		return false, ReasonGTTooShort
	}
	if !strings.ContainsAny(diff, "+-") {
		return false, ReasonGTNoDiffMarkers
	}
	return true, ReasonNone
}

// Report summarizes one filtering pass.
type Report struct {
	Considered int            `json:"considered"`
	Routed     int            `json:"routed"`
	Accepted   int            `json:"accepted"`
	Rejections map[Reason]int `json:"rejections"`
}

// Rejected is the number of records that did not survive routing or quality checks.
func (r Report) Rejected() int {
	return r.Considered - r.Accepted
}

// Evaluate routes records to the domain and applies the quality checks, preserving input order.
func Evaluate(records []models.TrainingRecord, cfg domain.Config) ([]models.TrainingRecord, Report) {
	report := Report{
		Considered: len(records),
		Rejections: make(map[Reason]int),
	}

	accepted := make([]models.TrainingRecord, 0, len(records))
	for _, record := range records {
		if !MatchesDomain(record, cfg) {
			report.Rejections[ReasonWrongTaskType]++
			continue
		}
		report.Routed++

		ok, reason := Accepts(record, cfg)
		if !ok {
			report.Rejections[reason]++
			continue
		}
		accepted = append(accepted, record)
	}

	report.Accepted = len(accepted)
	return accepted, report
}
