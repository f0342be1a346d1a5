package loader

import (
	"context"
	"encoding/json"
	"path/filepath"
	"unicode/utf8"

	"github.com/noah-isme/forge/internal/models"
)

const groundTruthType = "ground_truth"

type rawPair struct {
	Prompt          string `json:"prompt"`
	ClaudeResponse  string `json:"claude_response"`
	LocalResponse   string `json:"local_response"`
	GroundTruthDiff string `json:"ground_truth_diff"`
	Type            string `json:"type"`
	TaskType        string `json:"task_type"`
}

func (p rawPair) toRecord(file string) models.TrainingRecord {
	record := models.TrainingRecord{
		Prompt:   p.Prompt,
		Metadata: map[string]interface{}{models.MetaSourceFile: file},
	}

	if p.Type == groundTruthType && p.GroundTruthDiff != "" {
		record.SourceKind = models.SourceGroundTruth
		record.ResponsePrimary = p.GroundTruthDiff
	} else {
		record.SourceKind = models.SourceDistillation
		record.ResponsePrimary = p.ClaudeResponse
		record.ResponseSecondary = p.LocalResponse
	}

	if taskType, ok := models.ParseTaskType(p.TaskType); ok {
		record.TaskType = taskType
	}

	return record
}

// LoadPairs reads distillation and ground-truth pairs from every *.jsonl file in dir.
func (l *Loader) LoadPairs(ctx context.Context, dir string) ([]models.TrainingRecord, SourceStats, error) {
	var stats SourceStats

	files, err := listFiles(dir, "*.jsonl")
	if err != nil {
		return nil, stats, err
	}

	var records []models.TrainingRecord
	for _, path := range files {
		file := filepath.Base(path)
		err := l.eachLine(ctx, path, &stats, func(line []byte) bool {
			var pair rawPair
			if err := json.Unmarshal(line, &pair); err != nil {
				return false
			}
			record := pair.toRecord(file)
			if utf8.RuneCountInString(record.ResponsePrimary) < l.minResponseLength {
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
