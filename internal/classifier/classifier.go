// Package classifier assigns a task type to free text using weighted rule banks and context bonuses.
package classifier

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/forge/internal/models"
)

const (
	toolCallBonus        = 0.4
	perToolBonus         = 0.1
	maxBonusTools        = 3
	promptFenceBonus     = 0.25
	responseCodeBonus    = 0.15
	longResponseBonus    = 0.1
	longResponseLength   = 2000
	veryShortChatBonus   = 0.5
	veryShortPromptLimit = 30
	shortChatBonus       = 0.3
	shortPromptLimit     = 60
	confidenceFloor      = 0.3
)

// Hints carries response-side evidence used for context bonuses.
type Hints struct {
	HasToolCalls   bool
	HasCode        bool
	ToolsUsed      []string
	ResponseLength int
}

// HintsFromResponse derives hints from a gold response text.
func HintsFromResponse(response string) Hints {
	return Hints{
		HasToolCalls:   strings.Contains(response, "[Tool:"),
		HasCode:        strings.Contains(response, "```"),
		ResponseLength: utf8.RuneCountInString(response),
	}
}

// Classifier scores text against rule banks. It is immutable and safe for concurrent use.
type Classifier struct {
	banks map[models.TaskType][]Rule
}

// New builds a classifier from a rule table.
func New(rules []Rule) *Classifier {
	banks := make(map[models.TaskType][]Rule, len(models.TaskTypes))
	for _, r := range rules {
		banks[r.Category] = append(banks[r.Category], r)
	}
	return &Classifier{banks: banks}
}

var defaultClassifier = New(DefaultRules)

// Default returns the classifier built from DefaultRules.
func Default() *Classifier {
	return defaultClassifier
}

// BankSize returns the number of rules in a category bank.
func (c *Classifier) BankSize(category models.TaskType) int {
	return len(c.banks[category])
}

// Matches returns the names of the rules of category that fire for text.
func (c *Classifier) Matches(category models.TaskType, text string) []string {
	var names []string
	for _, r := range c.banks[category] {
		if r.Matches(text) {
			names = append(names, r.Name)
		}
	}
	return names
}

// Classify returns the best-guess category for text with its bonus-adjusted score map.
func (c *Classifier) Classify(text string, hints Hints) models.ClassificationResult {
	raw := make(map[models.TaskType]int, len(models.TaskTypes))
	scores := make(map[models.TaskType]float64, len(models.TaskTypes))

	for _, category := range models.TaskTypes {
		hits := 0
		for _, r := range c.banks[category] {
			if r.Matches(text) {
				hits++
			}
		}
		raw[category] = hits
		if size := len(c.banks[category]); size > 0 {
			scores[category] = float64(hits) / float64(size)
		} else {
			scores[category] = 0
		}
	}

	if hints.HasToolCalls {
		scores[models.TaskTypeTools] += toolCallBonus
	}
	if n := len(hints.ToolsUsed); n > 0 {
		scores[models.TaskTypeTools] += perToolBonus * float64(min(n, maxBonusTools))
	}
	if strings.Contains(text, "```") {
		scores[models.TaskTypeCoding] += promptFenceBonus
	}
	if hints.HasCode && !hints.HasToolCalls {
		scores[models.TaskTypeCoding] += responseCodeBonus
	}
	if hints.ResponseLength > longResponseLength {
		scores[models.TaskTypeReasoning] += longResponseBonus
	}

	// Chat hits do not count as signal: a bare greeting still earns the short-prompt bonus.
	hasSignal := raw[models.TaskTypeCoding] > 0 || raw[models.TaskTypeReasoning] > 0 || raw[models.TaskTypeTools] > 0
	length := utf8.RuneCountInString(text)
	switch {
	case hasSignal:
	case length < veryShortPromptLimit:
		scores[models.TaskTypeChat] += veryShortChatBonus
	case length < shortPromptLimit:
		scores[models.TaskTypeChat] += shortChatBonus
	}

	best := models.TaskTypes[0]
	for _, category := range models.TaskTypes[1:] {
		if beats(category, best, scores, raw) {
			best = category
		}
	}

	second := math.Inf(-1)
	for _, category := range models.TaskTypes {
		if category == best {
			continue
		}
		second = math.Max(second, scores[category])
	}

	gap := scores[best]
	if !math.IsInf(second, -1) {
		gap = scores[best] - second
	}

	return models.ClassificationResult{
		TaskType:   best,
		Scores:     scores,
		RawHits:    raw,
		Confidence: math.Max(0, math.Min(1, gap+confidenceFloor)),
	}
}

// beats reports whether candidate outranks current: higher score, then more raw hits. Remaining ties keep the earlier category.
func beats(candidate, current models.TaskType, scores map[models.TaskType]float64, raw map[models.TaskType]int) bool {
	if scores[candidate] != scores[current] {
		return scores[candidate] > scores[current]
	}
	return raw[candidate] > raw[current]
}

// ClassifyRecord attaches a task type and confidence to records that have none.
func (c *Classifier) ClassifyRecord(record *models.TrainingRecord) {
	if record == nil || record.IsClassified() {
		return
	}

	hints := HintsFromResponse(record.ResponsePrimary)
	hints.ToolsUsed = record.ToolsUsed()

	result := c.Classify(record.Prompt, hints)
	confidence := result.Confidence
	record.TaskType = result.TaskType
	record.ClassificationConfidence = &confidence
}
