package benchmark

import (
	"math"
	"time"

	"github.com/noah-isme/forge/internal/models"
)

// RegressionThreshold is the overall-score drop beyond which a run is flagged.
const RegressionThreshold = 5.0

// DefaultVersion labels runs without an explicit version.
const DefaultVersion = "latest"

// RunMeta identifies a benchmark run.
type RunMeta struct {
	RunID       string
	Version     string
	Model       string
	Domain      string
	EvaluatedAt time.Time
}

// Summarize averages per-task results overall, per rubric and per category. Averages are rounded to two decimals.
func Summarize(results []models.BenchmarkResult, meta RunMeta) models.RunSummary {
	version := meta.Version
	if version == "" {
		version = DefaultVersion
	}

	summary := models.RunSummary{
		RunID:          meta.RunID,
		Version:        version,
		Model:          meta.Model,
		Domain:         meta.Domain,
		EvaluatedAt:    meta.EvaluatedAt.UTC(),
		TasksEvaluated: len(results),
		Categories:     map[string]float64{},
		Results:        results,
	}
	if summary.Results == nil {
		summary.Results = []models.BenchmarkResult{}
	}
	if len(results) == 0 {
		return summary
	}

	var total, structure, correctness, similarity, completeness float64
	categoryTotals := map[string]float64{}
	categoryCounts := map[string]int{}
	for _, r := range results {
		total += r.TotalScore
		structure += r.StructureScore
		correctness += r.CorrectnessScore
		similarity += r.SimilarityScore
		completeness += r.CompletenessScore
		categoryTotals[r.Category] += r.TotalScore
		categoryCounts[r.Category]++
	}

	n := float64(len(results))
	summary.OverallScore = round2(total / n)
	summary.StructureScore = round2(structure / n)
	summary.CorrectnessScore = round2(correctness / n)
	summary.SimilarityScore = round2(similarity / n)
	summary.CompletenessScore = round2(completeness / n)
	for category, sum := range categoryTotals {
		summary.Categories[category] = round2(sum / float64(categoryCounts[category]))
	}

	return summary
}

// Compare classifies the current overall score against the previous run of the same domain. A nil previous run is a baseline.
func Compare(current models.RunSummary, previous *models.BenchmarkRun) models.Comparison {
	if previous == nil {
		return models.Comparison{
			Status:       models.ComparisonBaseline,
			CurrentScore: current.OverallScore,
		}
	}

	delta := round2(current.OverallScore - previous.OverallScore)
	status := models.ComparisonStable
	switch {
	case delta < -RegressionThreshold:
		status = models.ComparisonRegression
	case delta > 0:
		status = models.ComparisonImprovement
	}

	return models.Comparison{
		Status:          status,
		PreviousVersion: previous.Version,
		PreviousScore:   previous.OverallScore,
		CurrentScore:    current.OverallScore,
		Delta:           delta,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
