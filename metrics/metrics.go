// Package metrics exposes Prometheus collectors for generation calls and scoring runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GenerationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptopt_generation_requests_total",
		Help: "Total generation requests sent to the model provider",
	}, []string{"provider", "status"})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptopt_generation_duration_seconds",
		Help:    "Generation request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider"})

	ScoringRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promptopt_scoring_runs_total",
		Help: "Total scoring runs executed",
	})

	TestCaseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptopt_test_case_failures_total",
		Help: "Test cases excluded from a scoring run",
	}, []string{"reason"})

	EvaluatorFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptopt_evaluator_fallbacks_total",
		Help: "Evaluations that returned the neutral fallback score",
	}, []string{"metric"})

	AnalysisFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptopt_analysis_fallbacks_total",
		Help: "Analyses replaced by the default analysis, by cause",
	}, []string{"status"})

	WeightedScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "promptopt_weighted_score",
		Help:    "Weighted score distribution per variation kind",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	}, []string{"kind"})

	OptimizationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promptopt_optimization_runs_total",
		Help: "Completed optimization runs",
	}, []string{"outcome"})
)
