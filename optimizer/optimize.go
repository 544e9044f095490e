package optimizer

import (
	"context"
	"fmt"

	"github.com/teilomillet/promptopt/llm"
)

// NewConfiguredOptimizer builds an optimizer with the configured objectives
// and the default evaluators. Extra options are applied after the config.
func NewConfiguredOptimizer(client llm.LLM, cfg OptimizationConfig, opts ...OptimizerOption) (*Optimizer, error) {
	objectives := DefaultObjectives()
	if cfg.Objectives != nil {
		var err error
		objectives, err = NewPromptObjectives(cfg.Objectives...)
		if err != nil {
			return nil, fmt.Errorf("invalid objectives: %w", err)
		}
	}

	o := NewOptimizer(client, objectives, append(cfg.Options(), opts...)...)
	if err := RegisterDefaultEvaluators(o, cfg.BrevityTarget, nil); err != nil {
		return nil, err
	}
	return o, nil
}

// OptimizePrompt runs one optimization of cfg.Prompt.
func OptimizePrompt(ctx context.Context, client llm.LLM, cfg OptimizationConfig, opts ...OptimizerOption) (*OptimizationResult, error) {
	o, err := NewConfiguredOptimizer(client, cfg, opts...)
	if err != nil {
		return nil, err
	}
	result, err := o.ScoreAndImprove(ctx, cfg.Prompt, cfg.TestCases)
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}
	return result, nil
}
