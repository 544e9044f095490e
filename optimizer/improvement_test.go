package optimizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/promptopt/metrics"
	"github.com/teilomillet/promptopt/utils"
)

func TestParseImprovementsTwoVersions(t *testing.T) {
	got := ParseImprovements(twoVersions)
	require.Len(t, got, 2)
	assert.Equal(t, "Write a 300-word blog post about artificial intelligence for beginners.", got[0])
	assert.Equal(t, "Write a blog post about how small businesses use AI.\nInclude three concrete examples.", got[1])
}

func TestParseImprovementsCapsAtThree(t *testing.T) {
	var b strings.Builder
	for _, n := range []string{"1", "2", "3", "4"} {
		b.WriteString("VERSION " + n + ":\nPrompt number " + n + "\n\n")
	}
	got := ParseImprovements(b.String())
	assert.Equal(t, []string{"Prompt number 1", "Prompt number 2", "Prompt number 3"}, got)
}

func TestParseImprovementsEdgeCases(t *testing.T) {
	testCases := []struct {
		name     string
		response string
		want     []string
	}{
		{"no labels", "Just make the prompt better.", nil},
		{"empty segment", "VERSION 1:\n\nVERSION 2:\nSecond prompt", []string{"Second prompt"}},
		{"duplicates", "VERSION 1:\nSame\nVERSION 2:\nSame\nVERSION 3:\nOther", []string{"Same", "Other"}},
		{"same line", "VERSION 1: Write a 500-word post\nVERSION 2: Write a haiku", []string{"Write a 500-word post", "Write a haiku"}},
		{"markdown", "**Version 1 (Focus on Clarity):**\n\"Quoted prompt\"\n## Version 2\n`Code prompt`", []string{"Quoted prompt", "Code prompt"}},
		{"crlf", "VERSION 1:\r\nFirst\r\nVERSION 2:\r\nSecond", []string{"First", "Second"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseImprovements(tc.response))
		})
	}
}

func TestImproverAnalyze(t *testing.T) {
	client := &scriptedLLM{respond: func(context.Context, string) (string, error) {
		return validAnalysis, nil
	}}
	result := NewImprover(client).Analyze(context.Background(), "Write a blog post about AI")
	require.True(t, result.OK())
	assert.Equal(t, 4.0, result.Analysis.SpecificityScore)
	assert.Equal(t, 1, client.count("Analyze the following prompt"))
	assert.Contains(t, client.prompts[0], "Write a blog post about AI")
}

func TestImproverAnalyzeDegrades(t *testing.T) {
	generationBefore := testutil.ToFloat64(metrics.AnalysisFallbacks.WithLabelValues("generation_failed"))
	parseBefore := testutil.ToFloat64(metrics.AnalysisFallbacks.WithLabelValues("parse_failed"))
	logger := utils.NewMockLogger()

	failing := &scriptedLLM{respond: func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	result := NewImprover(failing, WithImproverLogger(logger)).Analyze(context.Background(), "prompt")
	assert.Equal(t, AnalysisGenerationFailed, result.Status)
	assert.Equal(t, 5.0, result.Analysis.OverallScore)
	assert.ErrorContains(t, result.Err, "quota exceeded")
	assert.True(t, logger.Contains("WARN", "default analysis"))

	garbled := &scriptedLLM{respond: func(context.Context, string) (string, error) {
		return "not json", nil
	}}
	result = NewImprover(garbled).Analyze(context.Background(), "prompt")
	assert.Equal(t, AnalysisParseFailed, result.Status)

	assert.Equal(t, generationBefore+1, testutil.ToFloat64(metrics.AnalysisFallbacks.WithLabelValues("generation_failed")))
	assert.Equal(t, parseBefore+1, testutil.ToFloat64(metrics.AnalysisFallbacks.WithLabelValues("parse_failed")))
}

func TestImproverGenerateImprovements(t *testing.T) {
	client := &scriptedLLM{respond: func(context.Context, string) (string, error) {
		return twoVersions, nil
	}}
	im := NewImprover(client, WithImproverFocus("specificity"))

	got, err := im.GenerateImprovements(context.Background(), "Write a blog post about AI", ParseAnalysis(validAnalysis).Analysis)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.Equal(t, 1, client.count("Given this prompt and its analysis"))
	assert.Contains(t, client.prompts[0], "Vague audience")
	assert.Contains(t, client.prompts[0], "specificity")

	failing := &scriptedLLM{respond: func(context.Context, string) (string, error) {
		return "", errors.New("down")
	}}
	_, err = NewImprover(failing).GenerateImprovements(context.Background(), "p", DefaultAnalysis(""))
	assert.ErrorContains(t, err, "down")
}
