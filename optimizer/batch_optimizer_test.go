package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestBatchOptimizer(t *testing.T) {
	o := newBlogOptimizer(t, blogLLM(nil))
	batch := NewBatchOptimizer(o)
	batch.SetRateLimit(rate.Inf, 1)
	batch.SetConcurrency(3)

	results := batch.OptimizePrompts(context.Background(), []BatchItem{
		{Name: "blog", Prompt: originalPrompt, TestCases: blogCases()},
		{Prompt: "   "},
		{Prompt: originalPrompt},
	})
	require.Len(t, results, 3)

	assert.Equal(t, "blog", results[0].Name)
	assert.NoError(t, results[0].Err)
	assert.Contains(t, results[0].BestImprovement, "three concrete examples")
	assert.InDelta(t, 0.5, results[0].ScoreImprovement, 1e-9)
	require.NotNil(t, results[0].Result)

	assert.Equal(t, "prompt_2", results[1].Name)
	assert.ErrorIs(t, results[1].Err, ErrEmptyPrompt)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, "   ", results[1].BestImprovement)

	assert.Equal(t, "prompt_3", results[2].Name)
	assert.NoError(t, results[2].Err)
}

func TestBatchOptimizerCancelled(t *testing.T) {
	batch := NewBatchOptimizer(newBlogOptimizer(t, blogLLM(nil)))
	batch.SetRateLimit(rate.Limit(0.001), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := batch.OptimizePrompts(ctx, []BatchItem{{Prompt: originalPrompt}, {Prompt: originalPrompt}})
	for _, r := range results {
		assert.Error(t, r.Err)
		assert.Nil(t, r.Result)
	}
}
