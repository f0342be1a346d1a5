// Package benchmark scores model responses against benchmark tasks and aggregates runs.
package benchmark

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/models"
	"github.com/noah-isme/forge/pkg/sandbox"
)

const defaultLanguage = "python"

var codeKeywords = []string{"def ", "function ", "class ", "const ", "let "}

var structureMarkers = []string{"##", "**", "\n\n", "1.", "- "}

// Scorer applies the four rubrics of a domain to model responses.
type Scorer struct {
	weights     domain.Weights
	codeDomain  bool
	keywords    []string
	executor    sandbox.Executor
	testTimeout time.Duration
	logger      zerolog.Logger
}

// Option customises a Scorer.
type Option func(*Scorer)

// WithTestTimeout overrides the per test case execution timeout.
func WithTestTimeout(timeout time.Duration) Option {
	return func(s *Scorer) {
		if timeout > 0 {
			s.testTimeout = timeout
		}
	}
}

// WithLogger attaches a logger for execution diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scorer) {
		s.logger = logger.With().Str("component", "scorer").Logger()
	}
}

// NewScorer builds a scorer for a domain. The executor is only used by code domains with test cases.
func NewScorer(cfg domain.Config, executor sandbox.Executor, opts ...Option) *Scorer {
	weights := cfg.Eval.Weights
	if weights.Total() == 0 {
		weights = domain.DefaultWeights
	}
	s := &Scorer{
		weights:     weights,
		codeDomain:  cfg.IsCodeDomain(),
		keywords:    cfg.Eval.KeywordChecks,
		executor:    executor,
		testTimeout: sandbox.DefaultTimeout,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the rubric maxima in use.
func (s *Scorer) Weights() domain.Weights {
	return s.weights
}

// Score evaluates one response. Sub-scores are independent and the total is their exact sum.
func (s *Scorer) Score(ctx context.Context, response string, task models.BenchmarkTask) models.BenchmarkResult {
	structure := s.Structure(response, task)
	correctness := s.Correctness(ctx, response, task)
	similarity := s.Similarity(response, task)
	completeness := s.Completeness(response, task)

	category := task.Category
	if category == "" {
		category = "general"
	}

	return models.BenchmarkResult{
		TaskID:            string(task.ID),
		Category:          category,
		TotalScore:        structure + correctness + similarity + completeness,
		StructureScore:    structure,
		CorrectnessScore:  correctness,
		SimilarityScore:   similarity,
		CompletenessScore: completeness,
		ResponseLength:    utf8.RuneCountInString(response),
		HasCode:           len(ExtractCodeBlocks(response)) > 0,
	}
}

// Structure rewards fenced code with language markers in code domains, and length, layout and keywords elsewhere.
func (s *Scorer) Structure(response string, task models.BenchmarkTask) float64 {
	w := s.weights.Structure

	if !s.codeDomain {
		score := 0.0
		switch n := utf8.RuneCountInString(response); {
		case n > 500:
			score += portion(w, 0.3)
		case n > 200:
			score += portion(w, 0.2)
		}
		if containsAny(response, structureMarkers) {
			score += portion(w, 0.3)
		}
		if len(s.keywords) > 0 {
			score += math.Floor(w * 0.4 * coverage(response, s.keywords))
		}
		return clamp(score, w)
	}

	blocks := ExtractCodeBlocks(response)
	if len(blocks) == 0 {
		if containsAny(strings.ToLower(response), codeKeywords) {
			return clamp(portion(w, 0.2), w)
		}
		return 0
	}

	score := portion(w, 0.6)
	code := strings.Join(blocks, "\n")

	language := strings.ToLower(task.Language)
	if language == "" {
		language = defaultLanguage
	}

	switch language {
	case "python":
		if strings.Contains(code, "def ") || strings.Contains(code, "class ") {
			score += portion(w, 0.2)
		}
		if strings.Contains(code, "return ") || strings.Contains(code, "print(") {
			score += portion(w, 0.2)
		}
	case "javascript", "typescript":
		if strings.Contains(code, "function ") || strings.Contains(code, "=>") || strings.Contains(code, "const ") {
			score += portion(w, 0.2)
		}
		if strings.Contains(code, "return ") {
			score += portion(w, 0.2)
		}
	default:
		if utf8.RuneCountInString(strings.TrimSpace(code)) > 20 {
			score += portion(w, 0.4)
		}
	}

	return clamp(score, w)
}

// Correctness runs test cases in code domains and falls back to length and requirement heuristics elsewhere.
func (s *Scorer) Correctness(ctx context.Context, response string, task models.BenchmarkTask) float64 {
	w := s.weights.Correctness

	if !s.codeDomain {
		score := 0.0
		switch n := utf8.RuneCountInString(response); {
		case n > 300:
			score += portion(w, 0.4)
		case n > 100:
			score += portion(w, 0.2)
		}
		if len(task.Requirements) > 0 {
			score += math.Floor(w * 0.6 * coverage(response, task.Requirements))
		} else {
			score += portion(w, 0.3)
		}
		return clamp(score, w)
	}

	blocks := ExtractCodeBlocks(response)
	if len(task.TestCases) == 0 {
		if len(blocks) > 0 && utf8.RuneCountInString(strings.Join(blocks, "\n")) > 50 {
			return clamp(portion(w, 0.625), w)
		}
		return clamp(portion(w, 0.25), w)
	}
	if len(blocks) == 0 {
		return 0
	}

	code := strings.Join(blocks, "\n")
	passed := 0
	for i, tc := range task.TestCases {
		if tc.Code == "" {
			continue
		}
		if s.runTestCase(ctx, code, tc, task, i) {
			passed++
		}
	}

	return clamp(math.Floor(float64(passed)/float64(len(task.TestCases))*w), w)
}

func (s *Scorer) runTestCase(ctx context.Context, code string, tc models.TestCase, task models.BenchmarkTask, index int) bool {
	if s.executor == nil {
		return false
	}

	result, err := s.executor.Run(ctx, sandbox.Program{
		Language: task.Language,
		Source:   code + "\n" + tc.Code,
		Timeout:  s.testTimeout,
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("task_id", string(task.ID)).Int("test_case", index).Msg("test case execution failed")
		return false
	}
	if !result.Succeeded() {
		return false
	}

	if tc.Expected == "" {
		return true
	}
	return strings.TrimSpace(result.Stdout) == strings.TrimSpace(string(tc.Expected))
}

// Similarity is the sequence-matching ratio against the gold answer, or half credit without one.
func (s *Scorer) Similarity(response string, task models.BenchmarkTask) float64 {
	w := s.weights.Similarity

	if task.GoldAnswer == "" {
		return clamp(math.Floor(w/2), w)
	}

	if !s.codeDomain {
		ratio := sequenceRatio(strings.TrimSpace(response), strings.TrimSpace(task.GoldAnswer))
		return clamp(math.Floor(ratio*w), w)
	}

	responseBlocks := ExtractCodeBlocks(response)
	if len(responseBlocks) == 0 {
		return 0
	}

	responseCode := strings.TrimSpace(strings.Join(responseBlocks, "\n"))
	goldCode := strings.TrimSpace(task.GoldAnswer)
	if goldBlocks := ExtractCodeBlocks(task.GoldAnswer); len(goldBlocks) > 0 {
		goldCode = strings.TrimSpace(strings.Join(goldBlocks, "\n"))
	}

	return clamp(math.Floor(sequenceRatio(responseCode, goldCode)*w), w)
}

// Completeness is the share of requirement keywords present, or a length and code heuristic without requirements.
func (s *Scorer) Completeness(response string, task models.BenchmarkTask) float64 {
	w := s.weights.Completeness

	if len(task.Requirements) > 0 {
		return clamp(math.Floor(coverage(response, task.Requirements)*w), w)
	}

	n := utf8.RuneCountInString(response)
	switch {
	case n > 200 && len(ExtractCodeBlocks(response)) > 0:
		return clamp(math.Floor(w*12/15), w)
	case n > 100:
		return clamp(math.Floor(w*8/15), w)
	default:
		return clamp(math.Floor(w*5/15), w)
	}
}

// sequenceRatio compares two texts character by character.
func sequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	chars := make([]string, 0, len(s))
	for _, r := range s {
		chars = append(chars, string(r))
	}
	return chars
}

// coverage is the fraction of needles found case-insensitively in text.
func coverage(text string, needles []string) float64 {
	if len(needles) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	found := 0
	for _, needle := range needles {
		if strings.Contains(lower, strings.ToLower(needle)) {
			found++
		}
	}
	return float64(found) / float64(len(needles))
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

func portion(weight, fraction float64) float64 {
	return math.Floor(weight * fraction)
}

func clamp(score, weight float64) float64 {
	if score < 0 {
		return 0
	}
	if score > weight {
		return weight
	}
	return score
}
