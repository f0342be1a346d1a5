package benchmark

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/forge/internal/domain"
	"github.com/noah-isme/forge/internal/models"
)

// FallbackTaskFile is used when a domain has no benchmark file of its own.
const FallbackTaskFile = "coding-tasks.jsonl"

// ErrNoTasks indicates a benchmark file without any usable task.
var ErrNoTasks = errors.New("no benchmark tasks found")

// TaskStats counts what happened while reading a benchmark file.
type TaskStats struct {
	Lines   int `json:"lines"`
	Tasks   int `json:"tasks"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
}

// TaskFile returns <dir>/<domain>-tasks.jsonl, or the coding file when the domain file is absent.
func TaskFile(dir string, id domain.ID) string {
	path := filepath.Join(dir, string(id)+"-tasks.jsonl")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(dir, FallbackTaskFile)
}

// LoadTasks reads benchmark JSONL. Malformed lines are skipped and tasks failing validation are dropped; both are counted.
// Tasks without an id are named "unknown".
func LoadTasks(path string, validate *validator.Validate) ([]models.BenchmarkTask, TaskStats, error) {
	var stats TaskStats

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, stats, fmt.Errorf("%w: %s does not exist", ErrNoTasks, path)
		}
		return nil, stats, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if validate == nil {
		validate = validator.New()
	}

	var tasks []models.BenchmarkTask
	reader := bufio.NewReader(f)
	for {
		line, readErr := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			stats.Lines++
			var task models.BenchmarkTask
			err := json.Unmarshal(trimmed, &task)
			if err == nil && task.ID == "" {
				task.ID = models.UnknownTaskID
			}
			switch {
			case err != nil:
				stats.Skipped++
			case validate.Struct(task) != nil:
				stats.Invalid++
			default:
				tasks = append(tasks, task)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, stats, fmt.Errorf("read %s: %w", path, readErr)
		}
	}

	stats.Tasks = len(tasks)
	if len(tasks) == 0 {
		return nil, stats, fmt.Errorf("%w in %s", ErrNoTasks, path)
	}
	return tasks, stats, nil
}
