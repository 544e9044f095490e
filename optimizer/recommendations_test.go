package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecommend(t *testing.T) {
	scores := map[string]float64{
		MetricBrevity:    0.65,
		MetricAccuracy:   0.95,
		MetricStyleMatch: 0.5,
	}
	analysis := Analysis{ClarityScore: 8, SpecificityScore: 6.5, StructureScore: 7, CompletenessScore: 9}

	got := Recommend(scores, analysis, DefaultThresholds)
	assert.Equal(t, []string{
		"Consider adding length constraints to your prompt",
		"Specify the desired tone, style, or format more clearly",
		"Add more specific requirements or constraints",
	}, got)
}

func TestRecommendAbsentScoresNeverTrigger(t *testing.T) {
	got := Recommend(nil, Analysis{ClarityScore: 10, SpecificityScore: 10, StructureScore: 10, CompletenessScore: 10}, DefaultThresholds)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	custom := []Threshold{{Source: SourceAnalysis, Name: "effectiveness", Below: 7, Message: "weak"}}
	assert.Empty(t, Recommend(nil, Analysis{}, custom))

	low := 3.0
	assert.Equal(t, []string{"weak"}, Recommend(nil, Analysis{EffectivenessScore: &low}, custom))
}
