package optimizer

import "time"

// Default configuration values
const (
	// DefaultWeight is reported by WeightFor for metrics without an objective.
	DefaultWeight = 1.0
	// NeutralScore is returned by an evaluator that cannot compute a score.
	NeutralScore = 0.5

	DefaultBrevityTarget        = 150
	DefaultConcurrency          = 4
	DefaultGenerationTimeout    = 60 * time.Second
	DefaultMaxTokens            = 500
	DefaultAnalysisMaxTokens    = 600
	DefaultImprovementMaxTokens = 800
	DefaultMinImprovement       = 0.01
	MaxImprovements             = 3
)

// Metric names registered by RegisterDefaultEvaluators.
const (
	MetricAccuracy         = "accuracy"
	MetricBrevity          = "brevity"
	MetricStyleMatch       = "style_match"
	MetricFormatCompliance = "format_compliance"
)
