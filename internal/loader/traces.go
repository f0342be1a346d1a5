package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/forge/internal/models"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"

	minToolPromptLength = 20
	minTraceMessages    = 2
)

var acceptedToolTraceTypes = map[string]bool{
	"tool_use":   true,
	"agent_loop": true,
}

type traceFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type traceToolCall struct {
	Function traceFunction `json:"function"`
}

type traceMessage struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	ToolCalls []traceToolCall `json:"tool_calls"`
}

type selfIterationRecord struct {
	Success    bool            `json:"success"`
	Trace      []traceMessage  `json:"trace"`
	TaskID     json.RawMessage `json:"task_id"`
	Iterations *int            `json:"iterations"`
}

type toolTraceMetadata struct {
	Type      string   `json:"type"`
	ToolsUsed []string `json:"tools_used"`
}

type toolTraceRecord struct {
	Prompt   string            `json:"prompt"`
	Trace    []traceMessage    `json:"trace"`
	Metadata toolTraceMetadata `json:"metadata"`
}

// LoadSelfIterationTraces reads successful self-correction traces from *-self-iterate.jsonl files.
func (l *Loader) LoadSelfIterationTraces(ctx context.Context, dir string) ([]models.TrainingRecord, SourceStats, error) {
	var stats SourceStats

	files, err := listFiles(dir, "*-self-iterate.jsonl")
	if err != nil {
		return nil, stats, err
	}

	var records []models.TrainingRecord
	for _, path := range files {
		file := filepath.Base(path)
		err := l.eachLine(ctx, path, &stats, func(line []byte) bool {
			var trace selfIterationRecord
			if err := json.Unmarshal(line, &trace); err != nil {
				return false
			}
			record, ok := l.selfIterationRecord(trace, file)
			if !ok {
				stats.Dropped++
				return true
			}
			records = append(records, record)
			stats.Records++
			return true
		})
		if err != nil {
			return nil, stats, err
		}
	}

	return records, stats, nil
}

func (l *Loader) selfIterationRecord(trace selfIterationRecord, file string) (models.TrainingRecord, bool) {
	if !trace.Success || len(trace.Trace) < minTraceMessages {
		return models.TrainingRecord{}, false
	}

	var prompt, gold string
	promptFound := false
	for _, msg := range trace.Trace {
		if msg.Role == roleUser && !promptFound {
			prompt = msg.Content
			promptFound = true
		}
		if msg.Role == roleAssistant {
			gold = msg.Content
		}
	}

	if prompt == "" || utf8.RuneCountInString(gold) < l.minResponseLength {
		return models.TrainingRecord{}, false
	}

	iterations := 1
	if trace.Iterations != nil {
		iterations = *trace.Iterations
	}

	metadata := map[string]interface{}{
		models.MetaIterations: iterations,
		models.MetaSourceFile: file,
	}
	if taskID := rawText(trace.TaskID); taskID != "" {
		metadata[models.MetaTaskID] = taskID
	}

	return models.TrainingRecord{
		Prompt:          prompt,
		ResponsePrimary: gold,
		SourceKind:      models.SourceSelfIteration,
		TaskType:        models.TaskTypeCoding,
		Metadata:        metadata,
	}, true
}

// LoadToolTraces reads tool-use and agent-loop traces from *-tools.jsonl and *-agent.jsonl files.
func (l *Loader) LoadToolTraces(ctx context.Context, dir string) ([]models.TrainingRecord, SourceStats, error) {
	var stats SourceStats

	files, err := listFiles(dir, "*-tools.jsonl", "*-agent.jsonl")
	if err != nil {
		return nil, stats, err
	}

	var records []models.TrainingRecord
	for _, path := range files {
		file := filepath.Base(path)
		err := l.eachLine(ctx, path, &stats, func(line []byte) bool {
			var trace toolTraceRecord
			if err := json.Unmarshal(line, &trace); err != nil {
				return false
			}
			record, ok := l.toolTraceRecord(trace, file)
			if !ok {
				stats.Dropped++
				return true
			}
			records = append(records, record)
			stats.Records++
			return true
		})
		if err != nil {
			return nil, stats, err
		}
	}

	return records, stats, nil
}

func (l *Loader) toolTraceRecord(trace toolTraceRecord, file string) (models.TrainingRecord, bool) {
	if len(trace.Trace) < minTraceMessages {
		return models.TrainingRecord{}, false
	}
	if !acceptedToolTraceTypes[trace.Metadata.Type] {
		return models.TrainingRecord{}, false
	}
	if utf8.RuneCountInString(trace.Prompt) < minToolPromptLength {
		return models.TrainingRecord{}, false
	}

	response := flattenAssistantTurns(trace.Trace)
	if utf8.RuneCountInString(response) < l.minResponseLength {
		return models.TrainingRecord{}, false
	}

	tools := trace.Metadata.ToolsUsed
	if tools == nil {
		tools = []string{}
	}

	return models.TrainingRecord{
		Prompt:          trace.Prompt,
		ResponsePrimary: strings.TrimSpace(response),
		SourceKind:      models.SourceToolTrace,
		TaskType:        models.TaskTypeTools,
		Metadata: map[string]interface{}{
			models.MetaToolsUsed:  tools,
			models.MetaSourceFile: file,
		},
	}, true
}

// flattenAssistantTurns renders every assistant turn as text, each tool call as a [Tool: name(args)] marker.
// The result is untrimmed; the length floor applies to this raw form.
func flattenAssistantTurns(trace []traceMessage) string {
	var b strings.Builder
	for _, msg := range trace {
		if msg.Role != roleAssistant {
			continue
		}
		if msg.Content != "" {
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
		for _, call := range msg.ToolCalls {
			b.WriteString("\n[Tool: ")
			b.WriteString(call.Function.Name)
			b.WriteString("(")
			b.WriteString(rawText(call.Function.Arguments))
			b.WriteString(")]\n")
		}
	}
	return b.String()
}

// rawText returns a JSON string's value, or the compact literal text of any other JSON value.
func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err == nil {
			return value
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed)
	}
	return compact.String()
}
