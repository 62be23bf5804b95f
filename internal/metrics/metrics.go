// Package metrics exposes Prometheus collectors for the ingestion worker.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pipelineRunsTotal        *prometheus.CounterVec
	candidatesTotal          *prometheus.CounterVec
	recordsWrittenTotal      prometheus.Counter
	recordsSkippedTotal      prometheus.Counter
	upsertFailuresTotal      prometheus.Counter
	strategyFailuresTotal    *prometheus.CounterVec
	renderDurationSeconds    prometheus.Histogram
	rateLimitRejectionsTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		pipelineRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_pipeline_runs_total",
				Help: "Total pipeline runs, labeled by terminal outcome.",
			},
			[]string{"outcome"},
		)
		candidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_candidates_total",
				Help: "Total extraction candidates produced, labeled by strategy.",
			},
			[]string{"strategy"},
		)
		recordsWrittenTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_records_written_total",
				Help: "Total event records newly written to storage.",
			},
		)
		recordsSkippedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_records_skipped_total",
				Help: "Total records skipped because their checksum was already stored.",
			},
		)
		upsertFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_upsert_failures_total",
				Help: "Total per-record upsert failures (the batch continues past them).",
			},
		)
		strategyFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_strategy_failures_total",
				Help: "Total extraction strategy failures recovered by the chain.",
			},
			[]string{"strategy"},
		)
		renderDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_render_duration_seconds",
				Help:    "Histogram of page render latencies.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 45},
			},
		)
		rateLimitRejectionsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ingest_rate_limit_rejections_total",
				Help: "Total fetches refused by the per-host rate limiter.",
			},
		)
	})
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records the terminal outcome of one pipeline run.
func ObserveRun(outcome string) {
	if pipelineRunsTotal != nil {
		pipelineRunsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveCandidates records how many candidates a strategy produced.
func ObserveCandidates(strategy string, n int) {
	if candidatesTotal != nil && n > 0 {
		candidatesTotal.WithLabelValues(strategy).Add(float64(n))
	}
}

// ObserveWritten adds to the newly-written record counter.
func ObserveWritten(n int) {
	if recordsWrittenTotal != nil {
		recordsWrittenTotal.Add(float64(n))
	}
}

// ObserveSkipped adds to the already-stored record counter.
func ObserveSkipped(n int) {
	if recordsSkippedTotal != nil {
		recordsSkippedTotal.Add(float64(n))
	}
}

// ObserveUpsertFailure counts one per-record persistence failure.
func ObserveUpsertFailure() {
	if upsertFailuresTotal != nil {
		upsertFailuresTotal.Inc()
	}
}

// ObserveStrategyFailure counts one recovered strategy failure.
func ObserveStrategyFailure(strategy string) {
	if strategyFailuresTotal != nil {
		strategyFailuresTotal.WithLabelValues(strategy).Inc()
	}
}

// ObserveRenderSeconds records one page render duration.
func ObserveRenderSeconds(seconds float64) {
	if renderDurationSeconds != nil {
		renderDurationSeconds.Observe(seconds)
	}
}

// ObserveRateLimitRejection counts one refused fetch.
func ObserveRateLimitRejection() {
	if rateLimitRejectionsTotal != nil {
		rateLimitRejectionsTotal.Inc()
	}
}
