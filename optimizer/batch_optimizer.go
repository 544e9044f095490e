package optimizer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/teilomillet/promptopt/utils"
)

// BatchOptimizer optimizes several prompts concurrently behind a shared
// rate limiter.
type BatchOptimizer struct {
	optimizer   *Optimizer
	rateLimiter *rate.Limiter
	concurrency int
	logger      utils.Logger
}

// NewBatchOptimizer starts one optimization every three seconds, two at a time.
func NewBatchOptimizer(o *Optimizer) *BatchOptimizer {
	return &BatchOptimizer{
		optimizer:   o,
		rateLimiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
		concurrency: 2,
		logger:      o.logger,
	}
}

func (b *BatchOptimizer) SetRateLimit(r rate.Limit, burst int) {
	b.rateLimiter = rate.NewLimiter(r, burst)
}

func (b *BatchOptimizer) SetConcurrency(n int) {
	if n > 0 {
		b.concurrency = n
	}
}

// BatchResult summarizes one prompt of a batch.
type BatchResult struct {
	Name             string              `json:"name"`
	Original         string              `json:"original"`
	BestImprovement  string              `json:"best_improvement"`
	ScoreImprovement float64             `json:"score_improvement"`
	Result           *OptimizationResult `json:"result,omitempty"`
	Err              error               `json:"-"`
	Error            string              `json:"error,omitempty"`
}

// OptimizePrompts runs every item and returns results in input order. A
// failure is recorded on its item and does not stop the others. When no
// candidate was produced, the original prompt is reported as the best.
func (b *BatchOptimizer) OptimizePrompts(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))
	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = b.optimizeOne(ctx, i, item)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (b *BatchOptimizer) optimizeOne(ctx context.Context, index int, item BatchItem) BatchResult {
	name := item.Name
	if name == "" {
		name = fmt.Sprintf("prompt_%d", index+1)
	}
	res := BatchResult{Name: name, Original: item.Prompt, BestImprovement: item.Prompt}

	if err := b.rateLimiter.Wait(ctx); err != nil {
		res.Err = fmt.Errorf("rate limiter error: %w", err)
		res.Error = res.Err.Error()
		return res
	}

	result, err := b.optimizer.ScoreAndImprove(ctx, item.Prompt, item.TestCases)
	if err != nil {
		b.logger.Warn("Batch item failed", "name", name, "error", err)
		res.Err = err
		res.Error = err.Error()
		return res
	}

	res.Result = result
	if best, ok := result.Best(); ok {
		res.BestImprovement = best.Prompt
		res.ScoreImprovement = result.Delta()
	}
	return res
}
