package optimizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int { return len(strings.Fields(text)) }

func TestBrevityScore(t *testing.T) {
	testCases := []struct {
		name   string
		length int
		want   float64
	}{
		{"exact", 150, 1.0},
		{"short by half", 75, 0.5},
		{"long by 30", 180, 0.8},
		{"double", 300, 0},
		{"far over", 1000, 0},
		{"empty", 0, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, BrevityScore(tc.length, 150), 1e-9)
		})
	}

	assert.Equal(t, NeutralScore, BrevityScore(10, 0))
}

func TestBrevityScoreMonotonic(t *testing.T) {
	prev := BrevityScore(150, 150)
	for length := 151; length <= 320; length++ {
		s := BrevityScore(length, 150)
		assert.LessOrEqual(t, s, prev, "length %d", length)
		assert.GreaterOrEqual(t, s, 0.0)
		prev = s
	}
}

func TestBrevityEvaluatorCountsRunes(t *testing.T) {
	e := NewBrevityEvaluator(10)

	r := e.Evaluate(PromptVariation{}, TestCase{}, "  ééééé ééééé  ")
	assert.InDelta(t, 1.0-1.0/10, r.Score, 1e-9)
	assert.Equal(t, 11, r.Metadata["length"])
	assert.Equal(t, "characters", r.Metadata["unit"])
	assert.False(t, r.Fallback)

	r = NewBrevityEvaluator(0).Evaluate(PromptVariation{}, TestCase{}, "anything")
	assert.True(t, r.Fallback)
	assert.Equal(t, NeutralScore, r.Score)
}

func TestBrevityEvaluatorTokens(t *testing.T) {
	e := NewTokenBrevityEvaluator(4, wordCounter{})
	r := e.Evaluate(PromptVariation{}, TestCase{}, "one two three four")
	assert.Equal(t, 1.0, r.Score)
	assert.Equal(t, "tokens", r.Metadata["unit"])

	r = NewTokenBrevityEvaluator(4, nil).Evaluate(PromptVariation{}, TestCase{}, "one")
	assert.True(t, r.Fallback)
}

func TestAccuracyEvaluator(t *testing.T) {
	e := NewAccuracyEvaluator()

	r := e.Evaluate(PromptVariation{}, TestCase{Expected: "Paris is the capital"}, "The capital of France is Paris.")
	assert.Equal(t, 1.0, r.Score)

	r = e.Evaluate(PromptVariation{}, TestCase{Expected: "red green blue yellow"}, "Red and blue.")
	assert.InDelta(t, 0.5, r.Score, 1e-9)
	assert.Equal(t, 2, r.Metadata["matched"])

	r = e.Evaluate(PromptVariation{}, TestCase{}, "anything")
	assert.True(t, r.Fallback)
	assert.Equal(t, NeutralScore, r.Score)
	assert.Contains(t, r.Explanation, "no expected answer")

	r = e.Evaluate(PromptVariation{}, TestCase{Expected: "?!"}, "anything")
	assert.True(t, r.Fallback)
}

func TestStyleEvaluator(t *testing.T) {
	e := NewStyleEvaluator()
	bulletOutput := "- first point\n- second point\n- third point"

	testCases := []struct {
		name     string
		template string
		hints    map[string]string
		output   string
		want     float64
	}{
		{"bullets met", "Summarize as a bullet list", nil, bulletOutput, 1},
		{"bullets missed", "Summarize as a bullet list", nil, "One paragraph only.", 0},
		{"haiku", "Write a haiku about autumn", nil, "leaves fall\ncold wind\nquiet", 1},
		{"json", "Reply in JSON", nil, "```json\n{\"a\": 1}\n```", 1},
		{"partial", "Give a concise answer as a bullet list", nil, "A single sentence.", 0.5},
		{"hint", "Describe the product", map[string]string{"style": "numbered"}, "1. one\n2. two", 1},
		{"formal", "Write a formal reply", nil, "We don't know!", 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := e.Evaluate(NewVariation("v", tc.template, nil), TestCase{Hints: tc.hints}, tc.output)
			assert.InDelta(t, tc.want, r.Score, 1e-9)
			assert.False(t, r.Fallback)
		})
	}
}

func TestStyleEvaluatorNoMarkers(t *testing.T) {
	r := NewStyleEvaluator().Evaluate(NewVariation("v", "Write about AI", nil), NewTestCase("healthcare"), "text")
	assert.Equal(t, NeutralScore, r.Score)
	assert.False(t, r.Fallback)
	assert.Equal(t, "prompt requests no particular tone or format", r.Explanation)
}

func TestStyleEvaluatorRenderFailure(t *testing.T) {
	r := NewStyleEvaluator().Evaluate(NewVariation("v", "{{.missing}}", map[string]any{"tone": "formal"}), TestCase{}, "text")
	assert.True(t, r.Fallback)
	assert.Equal(t, NeutralScore, r.Score)
}

func TestFormatComplianceJSON(t *testing.T) {
	e := NewFormatComplianceEvaluator()
	tc := TestCase{Format: &FormatRequirement{
		Type:           FormatJSON,
		RequiredFields: []string{"name", "address.city", "address.zip"},
	}}

	r := e.Evaluate(PromptVariation{}, tc, `{"name": "Ada", "address": {"city": "London"}}`)
	assert.InDelta(t, 2.0/3.0, r.Score, 1e-9)
	require.NotNil(t, r.Metadata)
	assert.Equal(t, []string{"address.zip"}, r.Metadata["missing"])

	r = e.Evaluate(PromptVariation{}, tc, "not json at all")
	assert.Equal(t, 0.0, r.Score)

	r = e.Evaluate(PromptVariation{}, TestCase{Format: &FormatRequirement{Type: FormatJSON}}, "```json\n[1, 2]\n```")
	assert.Equal(t, 1.0, r.Score)

	r = e.Evaluate(PromptVariation{}, TestCase{Format: &FormatRequirement{Type: FormatJSON}}, "Sure: {\"ok\": true}")
	assert.Equal(t, 1.0, r.Score)

	r = e.Evaluate(PromptVariation{}, TestCase{Format: &FormatRequirement{Type: FormatJSON}}, "```json\n{\"ok\": true}\n```\nHope this helps.")
	assert.Equal(t, 1.0, r.Score)
}

func TestFormatComplianceOther(t *testing.T) {
	e := NewFormatComplianceEvaluator()

	r := e.Evaluate(PromptVariation{}, TestCase{}, "anything")
	assert.Equal(t, 1.0, r.Score)
	assert.False(t, r.Fallback)

	regex := TestCase{Format: &FormatRequirement{Type: FormatRegex, Patterns: []string{`\d{4}`, `^Total:`}}}
	r = e.Evaluate(PromptVariation{}, regex, "The year 2024")
	assert.InDelta(t, 0.5, r.Score, 1e-9)

	bad := TestCase{Format: &FormatRequirement{Type: FormatRegex, Patterns: []string{`(`}}}
	assert.True(t, e.Evaluate(PromptVariation{}, bad, "x").Fallback)

	list := TestCase{Format: &FormatRequirement{Type: FormatList, MinItems: 4}}
	r = e.Evaluate(PromptVariation{}, list, "- a\n- b\n* c")
	assert.InDelta(t, 0.75, r.Score, 1e-9)

	r = e.Evaluate(PromptVariation{}, TestCase{Format: &FormatRequirement{Type: "xml"}}, "<a/>")
	assert.True(t, r.Fallback)
}
