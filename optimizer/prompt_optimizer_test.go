package optimizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	analysisPrefix    = "Analyze the following prompt"
	improvementPrefix = "Given this prompt and its analysis"
	originalPrompt    = "Write a blog post about AI"
)

// blogLLM answers analysis and improvement requests with fixtures and echoes
// every test case prompt back as its output.
func blogLLM(fail func(prompt string) error) *scriptedLLM {
	return &scriptedLLM{respond: func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.HasPrefix(prompt, analysisPrefix):
			return validAnalysis, nil
		case strings.HasPrefix(prompt, improvementPrefix):
			return twoVersions, nil
		}
		if fail != nil {
			if err := fail(prompt); err != nil {
				return "", err
			}
		}
		return prompt, nil
	}}
}

// quality rewards outputs that carry the more specific instructions.
var quality = EvaluatorFunc(func(_ PromptVariation, _ TestCase, output string) EvaluationResult {
	switch {
	case strings.Contains(output, "three concrete examples"):
		return EvaluationResult{Score: 0.9}
	case strings.Contains(output, "for beginners"):
		return EvaluationResult{Score: 0.7}
	default:
		return EvaluationResult{Score: 0.4}
	}
})

func newBlogOptimizer(t *testing.T, client *scriptedLLM, opts ...OptimizerOption) *Optimizer {
	t.Helper()
	o := NewOptimizer(client, DefaultObjectives(), opts...)
	require.NoError(t, o.AddEvaluator("quality", quality))
	return o
}

func blogCases() []TestCase {
	return []TestCase{NewTestCase("Focus on healthcare"), NewTestCase("Focus on education")}
}

func TestScoreAndImprove(t *testing.T) {
	client := blogLLM(nil)
	var stages []string
	o := newBlogOptimizer(t, client, WithStageCallback(func(s Stage) { stages = append(stages, s.String()) }))

	result, err := o.ScoreAndImprove(context.Background(), originalPrompt, blogCases())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"INIT", "SCORE_ORIGINAL", "ANALYZE", "GENERATE_CANDIDATES", "SCORE_CANDIDATES", "RANK", "DONE",
	}, stages)

	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.FinishedAt.Before(result.StartedAt))
	assert.Equal(t, originalPrompt, result.OriginalPrompt)
	assert.True(t, result.OriginalScored)
	assert.InDelta(t, 0.4, result.OriginalWeightedScore, 1e-9)
	assert.Equal(t, AnalysisOK, result.AnalysisStatus)
	assert.Equal(t, 4.0, result.Analysis.SpecificityScore)

	require.Len(t, result.Improvements, 2)
	assert.Equal(t, "Version 2", result.Improvements[0].Version)
	assert.Equal(t, "improved_v2", result.Improvements[0].Variation)
	assert.InDelta(t, 0.9, result.Improvements[0].WeightedScore, 1e-9)
	assert.Equal(t, "Version 1", result.Improvements[1].Version)
	assert.InDelta(t, 0.5, result.Delta(), 1e-9)
	assert.Empty(t, result.Excluded)
	assert.Empty(t, result.Errors)

	assert.Contains(t, result.Recommendations, "Add more specific requirements or constraints")
	assert.Contains(t, result.Recommendations, "Simplify language and avoid ambiguous terms")
	assert.NotContains(t, result.Recommendations, "Reorganize prompt with clear sections or bullet points")

	assert.Equal(t, 1, client.count(analysisPrefix))
	assert.Equal(t, 1, client.count(improvementPrefix))
	assert.Equal(t, 6, client.count("Write a"), "two test cases for the original and each candidate")
}

func TestScoreAndImproveRanksInDescendingOrder(t *testing.T) {
	client := &scriptedLLM{respond: func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.HasPrefix(prompt, analysisPrefix):
			return validAnalysis, nil
		case strings.HasPrefix(prompt, improvementPrefix):
			return "VERSION 1:\nfor beginners\nVERSION 2:\nplain\nVERSION 3:\nthree concrete examples", nil
		}
		return prompt, nil
	}}
	o := newBlogOptimizer(t, client)

	result, err := o.ScoreAndImprove(context.Background(), originalPrompt, blogCases())
	require.NoError(t, err)
	require.Len(t, result.Improvements, 3)

	var versions []string
	for i, imp := range result.Improvements {
		versions = append(versions, imp.Version)
		if i > 0 {
			assert.GreaterOrEqual(t, result.Improvements[i-1].WeightedScore, imp.WeightedScore)
		}
	}
	assert.Equal(t, []string{"Version 3", "Version 1", "Version 2"}, versions)
}

func TestScoreAndImproveExcludesUnscoredCandidates(t *testing.T) {
	client := blogLLM(func(prompt string) error {
		if strings.Contains(prompt, "small businesses") {
			return errors.New("provider unavailable")
		}
		return nil
	})
	o := newBlogOptimizer(t, client)

	result, err := o.ScoreAndImprove(context.Background(), originalPrompt, blogCases())
	require.NoError(t, err)

	require.Len(t, result.Improvements, 1)
	assert.Equal(t, "Version 1", result.Improvements[0].Version)
	require.Len(t, result.Excluded, 1)
	assert.Equal(t, "Version 2", result.Excluded[0].Version)
	assert.Contains(t, result.Excluded[0].Reason, "generation")
}

func TestScoreAndImprovePartialFailureKeepsCandidate(t *testing.T) {
	client := blogLLM(func(prompt string) error {
		if strings.Contains(prompt, "beginners") && strings.Contains(prompt, "education") {
			return errors.New("flaky")
		}
		return nil
	})
	o := newBlogOptimizer(t, client)

	result, err := o.ScoreAndImprove(context.Background(), originalPrompt, blogCases())
	require.NoError(t, err)
	require.Len(t, result.Improvements, 2)
	assert.Equal(t, 1, result.Improvements[1].FailedCases)
	assert.InDelta(t, 0.7, result.Improvements[1].WeightedScore, 1e-9)
}

func TestScoreAndImproveAnalysisParseFailure(t *testing.T) {
	client := &scriptedLLM{respond: func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.HasPrefix(prompt, analysisPrefix):
			return "The prompt looks fine to me.", nil
		case strings.HasPrefix(prompt, improvementPrefix):
			return twoVersions, nil
		}
		return prompt, nil
	}}
	o := newBlogOptimizer(t, client)

	result, err := o.ScoreAndImprove(context.Background(), originalPrompt, blogCases())
	require.NoError(t, err)

	assert.Equal(t, AnalysisParseFailed, result.AnalysisStatus)
	assert.Equal(t, 5.0, result.Analysis.ClarityScore)
	require.NotEmpty(t, result.Errors)
	assert.Len(t, result.Improvements, 2)

	client.mu.Lock()
	defer client.mu.Unlock()
	var improvementRequest string
	for _, p := range client.prompts {
		if strings.HasPrefix(p, improvementPrefix) {
			improvementRequest = p
		}
	}
	assert.Contains(t, improvementRequest, "Analysis failed")
}

func TestScoreAndImproveImprovementFailure(t *testing.T) {
	client := &scriptedLLM{respond: func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.HasPrefix(prompt, analysisPrefix):
			return validAnalysis, nil
		case strings.HasPrefix(prompt, improvementPrefix):
			return "", errors.New("rate limited")
		}
		return prompt, nil
	}}
	o := newBlogOptimizer(t, client)

	result, err := o.ScoreAndImprove(context.Background(), originalPrompt, blogCases())
	require.NoError(t, err)
	assert.Empty(t, result.Improvements)
	assert.NotNil(t, result.Improvements)
	_, ok := result.Best()
	assert.False(t, ok)
	assert.Equal(t, 0.0, result.Delta())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "rate limited")
}

func TestScoreAndImproveArgumentErrors(t *testing.T) {
	o := newBlogOptimizer(t, blogLLM(nil))
	_, err := o.ScoreAndImprove(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	bare := NewOptimizer(blogLLM(nil), DefaultObjectives())
	_, err = bare.ScoreAndImprove(context.Background(), originalPrompt, nil)
	assert.ErrorIs(t, err, ErrNoEvaluators)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = o.ScoreAndImprove(ctx, originalPrompt, blogCases())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScoreAndImproveDefaultTestCases(t *testing.T) {
	client := blogLLM(nil)
	o := newBlogOptimizer(t, client)

	result, err := o.ScoreAndImprove(context.Background(), originalPrompt, nil)
	require.NoError(t, err)
	assert.Len(t, result.Original.RawResults, len(DefaultTestCases()))
	assert.Equal(t, 1, client.count(originalPrompt+"\n\nInput: Write a haiku about spring"))
}

func TestAddEvaluator(t *testing.T) {
	o := NewOptimizer(blogLLM(nil), nil)
	require.NoError(t, o.AddEvaluator("quality", quality))
	assert.ErrorIs(t, o.AddEvaluator("quality", constant(1)), ErrDuplicateEvaluator)
	assert.ErrorIs(t, o.AddEvaluator("", constant(1)), ErrInvalidEvaluator)
	assert.ErrorIs(t, o.AddEvaluator("nil", nil), ErrInvalidEvaluator)

	require.NoError(t, RegisterDefaultEvaluators(o, 0, nil))
	assert.Equal(t, []string{"quality", MetricAccuracy, MetricBrevity, MetricStyleMatch}, o.Evaluators())
	assert.Error(t, RegisterDefaultEvaluators(o, 0, nil))
}

func TestOptimizerObjectivesAreCopies(t *testing.T) {
	objectives := DefaultObjectives()
	o := NewOptimizer(blogLLM(nil), objectives)
	require.NoError(t, objectives.RemoveObjective("clarity"))

	got := o.Objectives()
	assert.Equal(t, 4, got.Len())
	require.NoError(t, got.RemoveObjective("brevity"))
	assert.Equal(t, 4, o.Objectives().Len())
}

func TestIterate(t *testing.T) {
	client := blogLLM(nil)
	o := newBlogOptimizer(t, client)

	history, err := o.Iterate(context.Background(), originalPrompt, blogCases(), 3)
	require.NoError(t, err)
	require.Len(t, history, 2)

	best, ok := history[0].Best()
	require.True(t, ok)
	assert.Equal(t, best.Prompt, history[1].OriginalPrompt)
	assert.InDelta(t, 0.9, history[1].OriginalWeightedScore, 1e-9)
	assert.Less(t, history[1].Delta(), DefaultMinImprovement)
}

func TestIterateReturnsHistoryOnError(t *testing.T) {
	o := newBlogOptimizer(t, blogLLM(nil))
	history, err := o.Iterate(context.Background(), "", blogCases(), 2)
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Empty(t, history)
}
