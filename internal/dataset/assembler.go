// Package dataset turns curated records into shuffled chat-format train, validation and test splits.
package dataset

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/models"
)

// DefaultSeed fixes the shuffle so identical input always yields identical splits.
const DefaultSeed int64 = 42

// MaxTestExamples bounds the test split taken from the head of the validation split.
const MaxTestExamples = 5

const groundTruthLeadIn = "Here are the code changes:\n\n```diff\n"

// ErrInsufficientExamples is returned when fewer records than the configured minimum survive curation.
var ErrInsufficientExamples = errors.New("insufficient examples")

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Example is a single training conversation.
type Example struct {
	Messages []Message `json:"messages"`
}

// Dataset holds the three output splits.
type Dataset struct {
	Train []Example
	Valid []Example
	Test  []Example
}

// Options override the domain defaults for one assembly. Zero values fall back to the domain config.
type Options struct {
	Seed        int64
	SplitRatio  float64
	MinExamples int
}

func (o Options) resolve(cfg domain.Config) Options {
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.SplitRatio <= 0 || o.SplitRatio > 1 {
		o.SplitRatio = cfg.SplitRatio
	}
	if o.MinExamples <= 0 {
		o.MinExamples = cfg.MinExamples
	}
	return o
}

// GoldText resolves the assistant turn of a record. Ground-truth diffs are wrapped in a fenced diff block.
func GoldText(record models.TrainingRecord) string {
	if record.SourceKind == models.SourceGroundTruth {
		return groundTruthLeadIn + record.ResponsePrimary + "\n```"
	}
	return record.ResponsePrimary
}

// ToExample renders a record as a system/user/assistant conversation.
func ToExample(record models.TrainingRecord, systemPrompt string) Example {
	return Example{Messages: []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: record.Prompt},
		{Role: RoleAssistant, Content: GoldText(record)},
	}}
}

// Assemble shuffles records deterministically and splits them. It does not modify records.
func Assemble(records []models.TrainingRecord, cfg domain.Config, opts Options) (Dataset, error) {
	opts = opts.resolve(cfg)

	if len(records) < opts.MinExamples {
		return Dataset{}, fmt.Errorf("%w: %d < %d", ErrInsufficientExamples, len(records), opts.MinExamples)
	}

	examples := make([]Example, len(records))
	for i, record := range records {
		examples[i] = ToExample(record, cfg.SystemPrompt)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	rng.Shuffle(len(examples), func(i, j int) {
		examples[i], examples[j] = examples[j], examples[i]
	})

	split := int(float64(len(examples)) * opts.SplitRatio)
	train := examples[:split:split]
	valid := examples[split:]

	if len(valid) == 0 && len(train) > 1 {
		valid = []Example{train[len(train)-1]}
		train = train[:len(train)-1]
	}

	testSize := len(valid)
	if testSize > MaxTestExamples {
		testSize = MaxTestExamples
	}

	return Dataset{
		Train: train,
		Valid: valid,
		Test:  valid[:testSize:testSize],
	}, nil
}
