package classifier

import (
	"regexp"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forge/internal/models"
)

func TestClassifyCodeRequest(t *testing.T) {
	c := Default()

	result := c.Classify("write a function that sorts a list by name", Hints{})
	require.Equal(t, models.TaskTypeCoding, result.TaskType)
	require.Contains(t, c.Matches(models.TaskTypeCoding, "write a function that sorts a list by name"), "code_request")
	require.Greater(t, result.RawHits[models.TaskTypeCoding], 0)
}

func TestClassifyGreetingFavoursChat(t *testing.T) {
	result := Default().Classify("hi", Hints{})
	require.Equal(t, models.TaskTypeChat, result.TaskType)
	require.InDelta(t, 1.0/8.0+0.5, result.Scores[models.TaskTypeChat], 1e-9)
}

func TestClassifyShortPromptWithoutSignalFavoursChat(t *testing.T) {
	inputs := []string{"ok", "sounds good to me", "lovely, cheers mate", "what a day"}
	for _, input := range inputs {
		result := Default().Classify(input, Hints{})
		require.Equal(t, models.TaskTypeChat, result.TaskType, input)
	}
}

func TestClassifyMediumPromptGetsWeakerChatBonus(t *testing.T) {
	text := "that was a really lovely afternoon, cheers to everyone"
	require.GreaterOrEqual(t, utf8.RuneCountInString(text), veryShortPromptLimit)
	require.Less(t, utf8.RuneCountInString(text), shortPromptLimit)

	result := Default().Classify(text, Hints{})
	require.Equal(t, models.TaskTypeChat, result.TaskType)
	require.InDelta(t, 0.3, result.Scores[models.TaskTypeChat], 1e-9)
}

func TestClassifyShortPromptCountsCharacters(t *testing.T) {
	cases := []struct {
		text  string
		runes int
		bonus float64
	}{
		{"今日はとても良い天気ですね散歩に行きましょう", 22, 0.5},
		{"Très bien, à demain, Élodie!", 28, 0.5},
		{"今日はとても良い天気ですね。午後は駅前の喫茶店でゆっくりお茶を飲みましょう", 37, 0.3},
	}
	for _, tc := range cases {
		require.Equal(t, tc.runes, utf8.RuneCountInString(tc.text))
		require.Greater(t, len(tc.text), tc.runes)

		result := Default().Classify(tc.text, Hints{})
		require.Equal(t, models.TaskTypeChat, result.TaskType, tc.text)
		require.InDelta(t, tc.bonus, result.Scores[models.TaskTypeChat], 1e-9, tc.text)
		require.Zero(t, result.RawHits[models.TaskTypeChat], tc.text)
	}
}

func TestClassifyScenarios(t *testing.T) {
	cases := map[string]models.TaskType{
		"why is this throwing a null pointer exception in the payment handler?": models.TaskTypeReasoning,
		"search the codebase for all uses of getUserProfile":                    models.TaskTypeTools,
		"hey, what's the status of the sprint?":                                 models.TaskTypeChat,
		"refactor the auth middleware to use JWT tokens instead of sessions":    models.TaskTypeCoding,
		"deploy the staging environment and run the migration":                  models.TaskTypeTools,
	}
	for prompt, expected := range cases {
		require.Equal(t, expected, Default().Classify(prompt, Hints{}).TaskType, prompt)
	}
}

func TestClassifyToolBonuses(t *testing.T) {
	plain := Default().Classify("please handle this for me when you can thanks a lot friend", Hints{})
	boosted := Default().Classify("please handle this for me when you can thanks a lot friend", Hints{
		HasToolCalls: true,
		ToolsUsed:    []string{"read", "grep", "bash", "edit", "write"},
	})

	require.InDelta(t, plain.Scores[models.TaskTypeTools]+0.4+0.3, boosted.Scores[models.TaskTypeTools], 1e-9)
	require.Equal(t, models.TaskTypeTools, boosted.TaskType)
}

func TestClassifyCodeBonusesRequireNoToolCalls(t *testing.T) {
	text := "can you take another pass at the thing we discussed earlier today please"
	withCode := Default().Classify(text, Hints{HasCode: true})
	withCodeAndTools := Default().Classify(text, Hints{HasCode: true, HasToolCalls: true})

	base := Default().Classify(text, Hints{})
	require.InDelta(t, base.Scores[models.TaskTypeCoding]+0.15, withCode.Scores[models.TaskTypeCoding], 1e-9)
	require.InDelta(t, base.Scores[models.TaskTypeCoding], withCodeAndTools.Scores[models.TaskTypeCoding], 1e-9)
}

func TestClassifyLongResponseBonus(t *testing.T) {
	text := "can you take another pass at the thing we discussed earlier today please"
	base := Default().Classify(text, Hints{})
	long := Default().Classify(text, Hints{ResponseLength: 2001})
	require.InDelta(t, base.Scores[models.TaskTypeReasoning]+0.1, long.Scores[models.TaskTypeReasoning], 1e-9)
}

func TestClassifyResultIsArgMaxWithBoundedConfidence(t *testing.T) {
	inputs := []string{
		"",
		"hi",
		"```go\nfunc main() {}\n```",
		"explain why the latency spikes when the pipeline deploys to production",
		"git status",
		"remind me to ping the channel about the sprint board",
		"SELECT * FROM users WHERE id = 1",
	}
	hints := []Hints{{}, {HasCode: true}, {HasToolCalls: true, ToolsUsed: []string{"a"}}, {ResponseLength: 5000}}

	for _, input := range inputs {
		for _, h := range hints {
			result := Default().Classify(input, h)
			require.GreaterOrEqual(t, result.Confidence, 0.0)
			require.LessOrEqual(t, result.Confidence, 1.0)
			for _, category := range models.TaskTypes {
				require.LessOrEqual(t, result.Scores[category], result.Scores[result.TaskType], input)
			}
		}
	}
}

func TestClassifyConfidenceIsMarginPlusFloor(t *testing.T) {
	result := Default().Classify("hi", Hints{})
	require.InDelta(t, 0.625+0.3, result.Confidence, 1e-9)
}

func TestTieBreakPrefersRawHitsThenOrder(t *testing.T) {
	rules := []Rule{
		{Category: models.TaskTypeCoding, Name: "a", Pattern: regexp.MustCompile(`alpha`)},
		{Category: models.TaskTypeCoding, Name: "b", Pattern: regexp.MustCompile(`beta`)},
		{Category: models.TaskTypeReasoning, Name: "c", Pattern: regexp.MustCompile(`alpha`)},
		{Category: models.TaskTypeReasoning, Name: "d", Pattern: regexp.MustCompile(`gamma`)},
		{Category: models.TaskTypeTools, Name: "e", Pattern: regexp.MustCompile(`zzz`)},
		{Category: models.TaskTypeChat, Name: "f", Pattern: regexp.MustCompile(`zzz`)},
	}
	c := New(rules)

	// equal normalized scores and equal raw hits: fixed order wins
	result := c.Classify("alpha and a long enough tail so no chat bonus applies here at all", Hints{})
	require.Equal(t, models.TaskTypeCoding, result.TaskType)

	// equal final scores, but reasoning has more raw hits once its bank is larger
	rules = append(rules, Rule{Category: models.TaskTypeReasoning, Name: "g", Pattern: regexp.MustCompile(`delta`)})
	rules = append(rules, Rule{Category: models.TaskTypeReasoning, Name: "h", Pattern: regexp.MustCompile(`epsilon`)})
	c = New(rules)
	// coding: 1/2 = 0.5, reasoning: 2/4 = 0.5
	result = c.Classify("alpha gamma and a long enough tail so no chat bonus applies here", Hints{})
	require.Equal(t, models.TaskTypeReasoning, result.TaskType)
}

func TestClassifyRecordOnlyFillsMissingType(t *testing.T) {
	record := &models.TrainingRecord{
		Prompt:          "write a function that parses a CSV file",
		ResponsePrimary: "```python\ndef parse(): pass\n```",
		SourceKind:      models.SourceDistillation,
	}
	Default().ClassifyRecord(record)
	require.Equal(t, models.TaskTypeCoding, record.TaskType)
	require.NotNil(t, record.ClassificationConfidence)

	labelled := &models.TrainingRecord{Prompt: "hi", TaskType: models.TaskTypeTools}
	Default().ClassifyRecord(labelled)
	require.Equal(t, models.TaskTypeTools, labelled.TaskType)
	require.Nil(t, labelled.ClassificationConfidence)
}

func TestDefaultBankSizes(t *testing.T) {
	c := Default()
	require.Equal(t, 13, c.BankSize(models.TaskTypeCoding))
	require.Equal(t, 11, c.BankSize(models.TaskTypeReasoning))
	require.Equal(t, 14, c.BankSize(models.TaskTypeTools))
	require.Equal(t, 8, c.BankSize(models.TaskTypeChat))
}
