package optimizer

import (
	"time"

	"github.com/teilomillet/promptopt/config"
)

// OptimizationConfig holds the parameters of a one-shot optimization run.
type OptimizationConfig struct {
	// Prompt is the prompt text to be optimized
	Prompt string

	// TestCases elicit the outputs that are scored. Empty selects
	// DefaultTestCases.
	TestCases []TestCase

	// Objectives weight the metrics. Nil selects DefaultObjectives.
	Objectives []OptimizationObjective

	// BrevityTarget is the ideal output length in characters.
	BrevityTarget int

	// Focus steers the improvement request ("balanced", "clarity", ...).
	Focus string

	Concurrency          int
	GenerationTimeout    time.Duration
	MaxTokens            int
	AnalysisMaxTokens    int
	ImprovementMaxTokens int
}

// DefaultOptimizationConfig returns the settings the CLI starts from.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		BrevityTarget:        DefaultBrevityTarget,
		Focus:                "balanced",
		Concurrency:          DefaultConcurrency,
		GenerationTimeout:    DefaultGenerationTimeout,
		MaxTokens:            DefaultMaxTokens,
		AnalysisMaxTokens:    DefaultAnalysisMaxTokens,
		ImprovementMaxTokens: DefaultImprovementMaxTokens,
	}
}

// ConfigFromSettings maps environment settings onto an OptimizationConfig.
func ConfigFromSettings(cfg *config.Config) OptimizationConfig {
	oc := DefaultOptimizationConfig()
	if cfg == nil {
		return oc
	}
	if cfg.BrevityTarget > 0 {
		oc.BrevityTarget = cfg.BrevityTarget
	}
	if cfg.Concurrency > 0 {
		oc.Concurrency = cfg.Concurrency
	}
	if cfg.GenerationTimeout > 0 {
		oc.GenerationTimeout = cfg.GenerationTimeout
	}
	if cfg.MaxTokens > 0 {
		oc.MaxTokens = cfg.MaxTokens
	}
	if cfg.AnalysisMaxTokens > 0 {
		oc.AnalysisMaxTokens = cfg.AnalysisMaxTokens
	}
	if cfg.ImprovementMaxTokens > 0 {
		oc.ImprovementMaxTokens = cfg.ImprovementMaxTokens
	}
	return oc
}

// Options converts the settings to optimizer options.
func (c OptimizationConfig) Options() []OptimizerOption {
	return []OptimizerOption{
		WithConcurrency(c.Concurrency),
		WithGenerationTimeout(c.GenerationTimeout),
		WithMaxTokens(c.MaxTokens),
		WithAnalysisMaxTokens(c.AnalysisMaxTokens),
		WithImprovementMaxTokens(c.ImprovementMaxTokens),
		WithFocus(c.Focus),
	}
}
