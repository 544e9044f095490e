package optimizer

import (
	"strings"
	"time"

	"github.com/teilomillet/promptopt/utils"
)

// cleanJSONResponse strips code fences and any prose around the outermost
// JSON object.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```JSON")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "[") {
		if end := strings.LastIndex(response, "]"); end > 0 {
			return response[:end+1]
		}
		return response
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")

	if start != -1 && end != -1 && end > start {
		return response[start : end+1]
	}

	return response
}

func WithLogger(logger utils.Logger) OptimizerOption {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithDebugManager(dm *utils.DebugManager) OptimizerOption {
	return func(o *Optimizer) {
		o.debugManager = dm
	}
}

// WithConcurrency bounds concurrent generation calls within a scoring run.
func WithConcurrency(n int) OptimizerOption {
	return func(o *Optimizer) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithGenerationTimeout bounds each test case generation call.
func WithGenerationTimeout(d time.Duration) OptimizerOption {
	return func(o *Optimizer) {
		if d > 0 {
			o.generationTimeout = d
		}
	}
}

// WithMaxTokens sets max output tokens for test case generations.
func WithMaxTokens(n int) OptimizerOption {
	return func(o *Optimizer) {
		o.maxTokens = n
	}
}

func WithAnalysisMaxTokens(n int) OptimizerOption {
	return func(o *Optimizer) {
		o.analysisMaxTokens = n
	}
}

func WithImprovementMaxTokens(n int) OptimizerOption {
	return func(o *Optimizer) {
		o.improvementMaxTokens = n
	}
}

// WithFocus steers the improvement request, e.g. "clarity". The default is
// "balanced".
func WithFocus(focus string) OptimizerOption {
	return func(o *Optimizer) {
		o.focus = focus
	}
}

func WithThresholds(thresholds []Threshold) OptimizerOption {
	return func(o *Optimizer) {
		o.thresholds = append([]Threshold(nil), thresholds...)
	}
}

func WithStageCallback(callback StageCallback) OptimizerOption {
	return func(o *Optimizer) {
		o.stageCallback = callback
	}
}

// WithMinImprovement sets the score gain Iterate requires to keep going.
func WithMinImprovement(delta float64) OptimizerOption {
	return func(o *Optimizer) {
		o.minImprovement = delta
	}
}
