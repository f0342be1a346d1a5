// Package loader reads the raw log formats and normalizes them into training records.
//
// Parsing is lossy by policy: malformed JSON lines are skipped and counted in Stats, never returned as errors.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/forge/internal/models"
)

// DefaultMinResponseLength is the flattened response floor used when none is configured.
const DefaultMinResponseLength = 50

// Source names used in stats and metrics.
const (
	SourcePairs         = "pairs"
	SourceSelfIteration = "self_iteration"
	SourceToolTraces    = "tool_traces"
)

// Sources locates the input directories.
type Sources struct {
	RawDir    string
	TracesDir string
}

// SourceStats counts what happened while reading one source.
type SourceStats struct {
	Files   int `json:"files"`
	NonText int `json:"non_text"`
	Lines   int `json:"lines"`
	Records int `json:"records"`
	Skipped int `json:"skipped"`
	Dropped int `json:"dropped"`
}

func (s *SourceStats) add(other SourceStats) {
	s.Files += other.Files
	s.NonText += other.NonText
	s.Lines += other.Lines
	s.Records += other.Records
	s.Skipped += other.Skipped
	s.Dropped += other.Dropped
}

// Stats aggregates per-source counters for a load.
type Stats struct {
	Pairs         SourceStats `json:"pairs"`
	SelfIteration SourceStats `json:"self_iteration"`
	ToolTraces    SourceStats `json:"tool_traces"`
}

// Total sums every source.
func (s Stats) Total() SourceStats {
	var total SourceStats
	total.add(s.Pairs)
	total.add(s.SelfIteration)
	total.add(s.ToolTraces)
	return total
}

// BySource returns the counters keyed by source name.
func (s Stats) BySource() map[string]SourceStats {
	return map[string]SourceStats{
		SourcePairs:         s.Pairs,
		SourceSelfIteration: s.SelfIteration,
		SourceToolTraces:    s.ToolTraces,
	}
}

// Loader ingests the three raw log formats.
type Loader struct {
	minResponseLength int
	logger            zerolog.Logger
}

// New constructs a loader. A non-positive minResponseLength selects DefaultMinResponseLength.
func New(minResponseLength int, logger zerolog.Logger) *Loader {
	if minResponseLength <= 0 {
		minResponseLength = DefaultMinResponseLength
	}
	return &Loader{
		minResponseLength: minResponseLength,
		logger:            logger.With().Str("component", "loader").Logger(),
	}
}

// Load reads every source and returns records in a fixed order: pairs, self-iteration traces, tool traces.
func (l *Loader) Load(ctx context.Context, sources Sources) ([]models.TrainingRecord, Stats, error) {
	var stats Stats

	pairs, pairStats, err := l.LoadPairs(ctx, sources.RawDir)
	if err != nil {
		return nil, stats, err
	}
	stats.Pairs = pairStats

	selfIteration, siStats, err := l.LoadSelfIterationTraces(ctx, sources.TracesDir)
	if err != nil {
		return nil, stats, err
	}
	stats.SelfIteration = siStats

	toolTraces, toolStats, err := l.LoadToolTraces(ctx, sources.TracesDir)
	if err != nil {
		return nil, stats, err
	}
	stats.ToolTraces = toolStats

	records := make([]models.TrainingRecord, 0, len(pairs)+len(selfIteration)+len(toolTraces))
	records = append(records, pairs...)
	records = append(records, selfIteration...)
	records = append(records, toolTraces...)

	for name, s := range stats.BySource() {
		l.logger.Info().
			Str("source", name).
			Int("files", s.Files).
			Int("records", s.Records).
			Int("skipped_lines", s.Skipped).
			Int("dropped", s.Dropped).
			Msg("source loaded")
	}

	return records, stats, nil
}

// listFiles returns the sorted files of dir matching the glob patterns, in pattern order. A missing dir yields nothing.
func listFiles(dir string, patterns ...string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}

// isText reports whether the sniffed MIME type of path descends from text/plain.
func isText(path string) (bool, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false, err
	}
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true, nil
		}
	}
	return false, nil
}

// eachLine calls fn for every non-blank line of a text file. fn reports false when the line is malformed.
func (l *Loader) eachLine(ctx context.Context, path string, stats *SourceStats, fn func(line []byte) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := isText(path)
	if err != nil {
		return fmt.Errorf("detect %s: %w", path, err)
	}
	if !text {
		stats.NonText++
		l.logger.Warn().Str("file", path).Msg("skipping non-text input file")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	stats.Files++
	reader := bufio.NewReader(f)
	for {
		line, readErr := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			stats.Lines++
			if !fn(trimmed) {
				stats.Skipped++
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read %s: %w", path, readErr)
		}
	}
}
