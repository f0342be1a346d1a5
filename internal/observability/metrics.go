package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	httpErrorsTotal      *prometheus.CounterVec
	curationRecordsTotal *prometheus.CounterVec
	loaderLinesTotal     *prometheus.CounterVec
	curationRejections   *prometheus.CounterVec
	datasetExamples      *prometheus.GaugeVec
	benchmarkScore       *prometheus.GaugeVec
	benchmarkRegressions *prometheus.CounterVec
	benchmarkTaskSeconds *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service and the CLI.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forge_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		curationRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_curation_records_total",
			Help: "Records seen by curation runs, by domain and stage.",
		}, []string{"domain", "stage"})

		loaderLinesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_loader_lines_total",
			Help: "Input lines and files handled by the loader, by domain, source and outcome.",
		}, []string{"domain", "source", "outcome"})

		curationRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_curation_rejections_total",
			Help: "Records rejected by the quality filter, by domain and reason.",
		}, []string{"domain", "reason"})

		datasetExamples = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forge_dataset_examples",
			Help: "Examples written by the last curation run, by domain and split.",
		}, []string{"domain", "split"})

		benchmarkScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forge_benchmark_overall_score",
			Help: "Overall score of the last benchmark run per domain.",
		}, []string{"domain"})

		benchmarkRegressions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_benchmark_regressions_total",
			Help: "Benchmark runs flagged as regressions.",
		}, []string{"domain"})

		benchmarkTaskSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forge_benchmark_task_duration_seconds",
			Help:    "Generation and scoring time per benchmark task.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"domain"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			curationRecordsTotal, loaderLinesTotal, curationRejections, datasetExamples,
			benchmarkScore, benchmarkRegressions, benchmarkTaskSeconds,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// CurationRecords counts records per curation stage: loaded, routed, accepted, unique.
func CurationRecords() *prometheus.CounterVec {
	RegisterMetrics()
	return curationRecordsTotal
}

// LoaderLines counts loader outcomes per source: record, skipped (malformed), dropped (too short) and non_text files.
func LoaderLines() *prometheus.CounterVec {
	RegisterMetrics()
	return loaderLinesTotal
}

// CurationRejections counts filter rejections by reason.
func CurationRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return curationRejections
}

// DatasetExamples reports the split sizes of the last written dataset.
func DatasetExamples() *prometheus.GaugeVec {
	RegisterMetrics()
	return datasetExamples
}

// BenchmarkScore reports the overall score of the last run.
func BenchmarkScore() *prometheus.GaugeVec {
	RegisterMetrics()
	return benchmarkScore
}

// BenchmarkRegressions counts runs flagged as regressions.
func BenchmarkRegressions() *prometheus.CounterVec {
	RegisterMetrics()
	return benchmarkRegressions
}

// BenchmarkTaskDuration observes per-task durations.
func BenchmarkTaskDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return benchmarkTaskSeconds
}
