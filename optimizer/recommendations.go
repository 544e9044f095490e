package optimizer

// ScoreSource says where a Threshold reads its value from.
type ScoreSource int

const (
	// SourceMetric reads an aggregate evaluator score (0-1).
	SourceMetric ScoreSource = iota
	// SourceAnalysis reads an analysis dimension (0-10).
	SourceAnalysis
)

// Threshold emits Message when the named score is below Below. Scores that
// are absent never trigger.
type Threshold struct {
	Source  ScoreSource
	Name    string
	Below   float64
	Message string
}

// DefaultThresholds are the cutoffs used when none are configured.
var DefaultThresholds = []Threshold{
	{SourceMetric, MetricBrevity, 0.7, "Consider adding length constraints to your prompt"},
	{SourceMetric, MetricAccuracy, 0.8, "Add more specific context or examples to improve accuracy"},
	{SourceMetric, MetricStyleMatch, 0.7, "Specify the desired tone, style, or format more clearly"},
	{SourceMetric, MetricFormatCompliance, 0.8, "State the required output structure explicitly, ideally with an example"},
	{SourceAnalysis, "clarity", 7, "Simplify language and avoid ambiguous terms"},
	{SourceAnalysis, "specificity", 7, "Add more specific requirements or constraints"},
	{SourceAnalysis, "structure", 7, "Reorganize prompt with clear sections or bullet points"},
	{SourceAnalysis, "completeness", 7, "Cover the missing aspects the analysis lists"},
}

// Recommend applies thresholds in order to the scores and analysis.
func Recommend(scores map[string]float64, analysis Analysis, thresholds []Threshold) []string {
	recommendations := []string{}
	for _, t := range thresholds {
		var (
			value float64
			ok    bool
		)
		switch t.Source {
		case SourceMetric:
			value, ok = scores[t.Name]
		case SourceAnalysis:
			value, ok = analysis.Dimension(t.Name)
		}
		if ok && value < t.Below {
			recommendations = append(recommendations, t.Message)
		}
	}
	return recommendations
}
