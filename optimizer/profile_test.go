package optimizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `
name: support-replies
focus: specificity
brevity_target: 80
objectives:
  - name: accuracy
    priority: must_have
    weight: 3
  - name: brevity
    priority: nice-to-have
    weight: 0.5
evaluators:
  - name: accuracy
    type: accuracy
  - name: brevity
    type: brevity
  - name: format_compliance
    type: format
test_cases:
  - input: "My order has not arrived"
    expected: "tracking number refund"
    format:
      type: regex
      patterns: ["(?i)sorry"]
prompts:
  - name: refund
    prompt: "Reply to the customer"
`

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile([]byte(sampleProfile))
	require.NoError(t, err)

	assert.Equal(t, "support-replies", p.Name)
	require.Len(t, p.Objectives, 2)
	assert.Equal(t, PriorityMustHave, p.Objectives[0].Priority)
	assert.Equal(t, PriorityNiceToHave, p.Objectives[1].Priority)
	require.Len(t, p.TestCases, 1)
	require.NotNil(t, p.TestCases[0].Format)
	assert.Equal(t, FormatRegex, p.TestCases[0].Format.Type)
	require.Len(t, p.Prompts, 1)
	assert.False(t, p.NeedsTokenCounter())
}

func TestParseProfileInvalid(t *testing.T) {
	testCases := map[string]string{
		"bad yaml":        "name: [unclosed",
		"unknown type":    "evaluators:\n  - name: x\n    type: sentiment\n",
		"missing prompt":  "prompts:\n  - name: empty\n",
		"bad unit":        "evaluators:\n  - name: b\n    type: brevity\n    unit: words\n",
		"bad priority":    "objectives:\n  - name: a\n    priority: urgent\n",
		"negative weight": "objectives:\n  - name: a\n    weight: -2\n",
	}
	for name, data := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfile([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestParseProfileDefaultsOmittedWeight(t *testing.T) {
	p, err := ParseProfile([]byte("objectives:\n  - name: accuracy\n    priority: must\n"))
	require.NoError(t, err)
	require.Len(t, p.Objectives, 1)
	assert.Equal(t, DefaultWeight, p.Objectives[0].Weight)

	objectives, err := p.BuildObjectives()
	require.NoError(t, err)
	assert.Equal(t, DefaultWeight, objectives.WeightFor("accuracy"))
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleProfile), 0o644))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 80, p.BrevityTarget)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewOptimizerFromProfile(t *testing.T) {
	p, err := ParseProfile([]byte(sampleProfile))
	require.NoError(t, err)

	o, err := NewOptimizerFromProfile(blogLLM(nil), p, DefaultOptimizationConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{MetricAccuracy, MetricBrevity, MetricFormatCompliance}, o.Evaluators())
	assert.Equal(t, "specificity", o.focus)
	assert.Equal(t, 3.0, o.Objectives().WeightFor(MetricAccuracy))
	assert.Equal(t, 80, p.BrevityTarget)
}

func TestNewOptimizerFromProfileDefaults(t *testing.T) {
	settings := DefaultOptimizationConfig()
	settings.BrevityTarget = 42

	p := &Profile{}
	o, err := NewOptimizerFromProfile(blogLLM(nil), p, settings, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{MetricAccuracy, MetricBrevity, MetricStyleMatch}, o.Evaluators())
	assert.Equal(t, 4, o.Objectives().Len())
	assert.Equal(t, 0, p.BrevityTarget, "caller's profile is left untouched")

	o, err = NewOptimizerFromProfile(blogLLM(nil), nil, settings, nil)
	require.NoError(t, err)
	assert.Len(t, o.Evaluators(), 3)
}

func TestProfileTokenBrevityNeedsCounter(t *testing.T) {
	p, err := ParseProfile([]byte("evaluators:\n  - name: brevity\n    type: brevity\n    unit: tokens\n    target_length: 40\n"))
	require.NoError(t, err)
	require.True(t, p.NeedsTokenCounter())

	_, err = NewOptimizerFromProfile(blogLLM(nil), p, DefaultOptimizationConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidEvaluator)

	o, err := NewOptimizerFromProfile(blogLLM(nil), p, DefaultOptimizationConfig(), wordCounter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"brevity"}, o.Evaluators())
}
