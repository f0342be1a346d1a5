package domain

import "github.com/noah-isme/forge/internal/models"

const (
	defaultMinPromptLength   = 20
	defaultMinResponseLength = 50
	defaultSplitRatio        = 0.9
	defaultMinExamples       = 10
	defaultMaxTotalChars     = 24000
)

// Defaults returns the built-in configuration of a known domain.
func Defaults(id ID) (Config, error) {
	if _, err := ParseID(string(id)); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ID:                id,
		MinPromptLength:   defaultMinPromptLength,
		MinResponseLength: defaultMinResponseLength,
		SplitRatio:        defaultSplitRatio,
		MinExamples:       defaultMinExamples,
		Quality: Quality{
			MaxTotalChars: defaultMaxTotalChars,
		},
		Eval: Eval{
			Weights: DefaultWeights,
		},
	}

	switch id {
	case Coding:
		cfg.Name = "Coding"
		cfg.Description = "Code generation, editing and refactoring"
		cfg.ModelPrefix = "forge-coder"
		cfg.AcceptedTaskTypes = []models.TaskType{models.TaskTypeCoding}
		cfg.SystemPrompt = "You are an expert software engineer. Write correct, idiomatic, well-structured code and explain changes briefly."
		cfg.Quality.MinResponseLength = 500
		cfg.Quality.MinCodeBlocks = 1
		cfg.Eval.HasExecutableTests = true
	case Reasoning:
		cfg.Name = "Reasoning"
		cfg.Description = "Planning, debugging, architecture and analysis"
		cfg.ModelPrefix = "forge-reasoner"
		cfg.AcceptedTaskTypes = []models.TaskType{models.TaskTypeReasoning}
		cfg.SystemPrompt = "You are a senior engineer who reasons step by step. Diagnose problems, weigh trade-offs and give a clear recommendation."
		cfg.Quality.MinResponseLength = 200
		cfg.Eval.KeywordChecks = []string{"because", "trade-off", "root cause", "recommend", "step"}
	case Tools:
		cfg.Name = "Tools"
		cfg.Description = "File operations, search, shell commands and tool orchestration"
		cfg.ModelPrefix = "forge-operator"
		cfg.AcceptedTaskTypes = []models.TaskType{models.TaskTypeTools, models.TaskTypeCoding}
		cfg.SystemPrompt = "You are an agent that operates developer tools. Choose the right tool, call it with precise arguments and report results concisely."
		cfg.Quality.MinResponseLength = 100
		cfg.Eval.KeywordChecks = []string{"[Tool:", "file", "command", "result"}
	case Chat:
		cfg.Name = "Chat"
		cfg.Description = "Conversation, status updates, reminders and general questions"
		cfg.ModelPrefix = "forge-chat"
		cfg.AcceptedTaskTypes = []models.TaskType{models.TaskTypeChat}
		cfg.SystemPrompt = "You are a friendly, concise assistant for a software team."
		cfg.Quality.MinResponseLength = 20
	}

	return cfg, nil
}
