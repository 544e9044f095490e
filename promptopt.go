package promptopt

import (
	"context"
	"fmt"

	"github.com/teilomillet/promptopt/config"
	"github.com/teilomillet/promptopt/llm"
	"github.com/teilomillet/promptopt/optimizer"
	"github.com/teilomillet/promptopt/utils"
)

// LLM is the generation capability the optimizer scores prompts with.
type LLM = llm.LLM

// Client is a configured LLM together with the settings it was built from.
type Client struct {
	*llm.LLMImpl
	config *config.Config
	logger utils.Logger
}

// NewLLM loads the environment, applies opts on top, validates the result
// and builds a client for the selected provider.
func NewLLM(opts ...ConfigOption) (*Client, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	config.ApplyOptions(cfg, opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = utils.NewLogger(cfg.LogLevel)
	}
	impl, err := llm.NewLLM(cfg, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return &Client{LLMImpl: impl, config: cfg, logger: logger}, nil
}

// Config returns the settings the client was built from.
func (c *Client) Config() *config.Config {
	return c.config
}

func (c *Client) Logger() utils.Logger {
	return c.logger
}

// NewOptimizer returns an optimizer with the client's settings, the default
// objectives and the default evaluators.
func (c *Client) NewOptimizer(opts ...optimizer.OptimizerOption) (*optimizer.Optimizer, error) {
	opts = append([]optimizer.OptimizerOption{optimizer.WithLogger(c.logger)}, opts...)
	return optimizer.NewConfiguredOptimizer(c, optimizer.ConfigFromSettings(c.config), opts...)
}

// Optimize scores prompt, asks for improvements and ranks them. Empty
// testCases selects the default generic inputs.
func (c *Client) Optimize(ctx context.Context, prompt string, testCases ...optimizer.TestCase) (*optimizer.OptimizationResult, error) {
	o, err := c.NewOptimizer()
	if err != nil {
		return nil, err
	}
	return o.ScoreAndImprove(ctx, prompt, testCases)
}
