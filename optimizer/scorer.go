package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/teilomillet/promptopt/llm"
	"github.com/teilomillet/promptopt/metrics"
	"github.com/teilomillet/promptopt/utils"
)

var (
	ErrNoTestCases        = errors.New("no test cases")
	ErrNoEvaluators       = errors.New("no evaluators registered")
	ErrDuplicateEvaluator = errors.New("duplicate evaluator")
	ErrInvalidEvaluator   = errors.New("invalid evaluator")
)

// GenerateFunc produces the model output for one rendered prompt.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

// NamedEvaluator binds an evaluator to the metric name its results carry.
type NamedEvaluator struct {
	Name      string
	Evaluator Evaluator
}

// Failure reasons recorded on TestCaseFailure.
const (
	FailureGeneration = "generation"
	FailureTimeout    = "timeout"
	FailureRender     = "render"
)

// TestCaseFailure records a test case that produced no output in a run.
type TestCaseFailure struct {
	TestCaseIndex int    `json:"test_case"`
	Input         string `json:"input"`
	Reason        string `json:"reason"`
	Explanation   string `json:"explanation"`
	Err           error  `json:"-"`
}

// ScoringResult is the outcome of scoring one variation.
type ScoringResult struct {
	Variation       string             `json:"variation"`
	AggregateScores map[string]float64 `json:"aggregate_scores"`
	WeightedScore   float64            `json:"weighted_score"`
	// Scored is false when no metric produced a single result.
	Scored        bool               `json:"scored"`
	ScoredMetrics []string           `json:"scored_metrics"`
	FailedMetrics []string           `json:"failed_metrics,omitempty"`
	RawResults    []EvaluationResult `json:"raw_results"`
	Failures      []TestCaseFailure  `json:"failures,omitempty"`
}

// Scorer runs evaluators over test case outputs for one variation at a time.
// It holds private copies of the objectives and evaluator list.
type Scorer struct {
	objectives  *PromptObjectives
	evaluators  []NamedEvaluator
	concurrency int
	timeout     time.Duration
	logger      utils.Logger
}

type ScorerOption func(*Scorer)

// WithScorerConcurrency bounds the number of in-flight generation calls.
func WithScorerConcurrency(n int) ScorerOption {
	return func(s *Scorer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithScorerTimeout bounds each generation call.
func WithScorerTimeout(d time.Duration) ScorerOption {
	return func(s *Scorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithScorerLogger(logger utils.Logger) ScorerOption {
	return func(s *Scorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScorer snapshots objectives and evaluators; later changes to either do
// not affect the scorer.
func NewScorer(objectives *PromptObjectives, evaluators []NamedEvaluator, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		objectives:  objectives.Clone(),
		evaluators:  append([]NamedEvaluator(nil), evaluators...),
		concurrency: DefaultConcurrency,
		timeout:     DefaultGenerationTimeout,
		logger:      utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type caseOutcome struct {
	results []EvaluationResult
	failure *TestCaseFailure
}

// Run scores variation over testCases. Failures local to a test case are
// recorded in the result; only argument errors and cancellation of ctx are
// returned.
func (s *Scorer) Run(ctx context.Context, variation PromptVariation, testCases []TestCase, generate GenerateFunc) (*ScoringResult, error) {
	if len(testCases) == 0 {
		return nil, ErrNoTestCases
	}
	if len(s.evaluators) == 0 {
		return nil, ErrNoEvaluators
	}
	metrics.ScoringRuns.Inc()

	outcomes := make([]caseOutcome, len(testCases))
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, tc := range testCases {
		i, tc := i, tc
		g.Go(func() error {
			outcomes[i] = s.scoreCase(ctx, i, variation, tc, generate)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &ScoringResult{Variation: variation.Name}
	for _, o := range outcomes {
		result.RawResults = append(result.RawResults, o.results...)
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
		}
	}

	result.AggregateScores, result.WeightedScore, result.ScoredMetrics = Aggregate(result.RawResults, s.objectives)
	result.Scored = len(result.ScoredMetrics) > 0
	for _, ev := range s.evaluators {
		if _, ok := result.AggregateScores[ev.Name]; !ok {
			result.FailedMetrics = append(result.FailedMetrics, ev.Name)
		}
	}

	s.logger.Debug("Scoring run complete",
		"variation", variation.Name,
		"weighted_score", result.WeightedScore,
		"failures", len(result.Failures))
	return result, nil
}

func (s *Scorer) scoreCase(ctx context.Context, index int, variation PromptVariation, tc TestCase, generate GenerateFunc) caseOutcome {
	prompt, err := variation.Render(tc)
	if err != nil {
		return s.failed(index, tc, FailureRender, fmt.Sprintf("prompt could not be rendered: %v", err), err)
	}

	output, err := s.generateWithin(ctx, prompt, generate)
	if err != nil {
		if isTimeout(err) {
			return s.failed(index, tc, FailureTimeout,
				fmt.Sprintf("generation timed out after %s", s.timeout), err)
		}
		return s.failed(index, tc, FailureGeneration, fmt.Sprintf("generation failed: %v", err), err)
	}

	results := make([]EvaluationResult, 0, len(s.evaluators))
	for _, ev := range s.evaluators {
		r := safeEvaluate(ev, variation, tc, output)
		r.MetricName = ev.Name
		r.TestCaseIndex = index
		if r.Fallback {
			metrics.EvaluatorFallbacks.WithLabelValues(ev.Name).Inc()
		}
		results = append(results, r)
	}
	return caseOutcome{results: results}
}

type generation struct {
	output string
	err    error
}

// generateWithin bounds one generate call by the scorer timeout, including
// calls that ignore their context. A late result is discarded.
func (s *Scorer) generateWithin(ctx context.Context, prompt string, generate GenerateFunc) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan generation, 1)
	go func() {
		output, err := generate(callCtx, prompt)
		done <- generation{output, err}
	}()

	select {
	case g := <-done:
		return g.output, g.err
	case <-callCtx.Done():
		return "", callCtx.Err()
	}
}

func (s *Scorer) failed(index int, tc TestCase, reason, explanation string, err error) caseOutcome {
	metrics.TestCaseFailures.WithLabelValues(reason).Inc()
	s.logger.Warn("Test case failed", "test_case", index, "reason", reason, "error", err)

	markers := make([]EvaluationResult, 0, len(s.evaluators))
	for _, ev := range s.evaluators {
		markers = append(markers, EvaluationResult{
			MetricName:    ev.Name,
			Explanation:   explanation,
			TestCaseIndex: index,
			Failed:        true,
		})
	}
	return caseOutcome{
		results: markers,
		failure: &TestCaseFailure{
			TestCaseIndex: index,
			Input:         tc.Input,
			Reason:        reason,
			Explanation:   explanation,
			Err:           err,
		},
	}
}

// safeEvaluate turns an evaluator panic into a neutral result.
func safeEvaluate(ev NamedEvaluator, variation PromptVariation, tc TestCase, output string) (result EvaluationResult) {
	defer func() {
		if r := recover(); r != nil {
			result = neutral(fmt.Sprintf("evaluator %s panicked: %v", ev.Name, r))
		}
	}()
	result = ev.Evaluator.Evaluate(variation, tc, output)
	return result
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if llmErr, ok := llm.AsGenerationError(err); ok {
		return llmErr.Type == llm.ErrorTypeTimeout
	}
	return false
}

// Aggregate averages scores per metric, skipping failure markers, and
// combines the averages into a weighted mean normalized by the weights of
// the metrics present. Metrics with no results are absent from the map.
func Aggregate(results []EvaluationResult, objectives *PromptObjectives) (map[string]float64, float64, []string) {
	byMetric := make(map[string][]float64)
	for _, r := range results {
		if r.Failed {
			continue
		}
		byMetric[r.MetricName] = append(byMetric[r.MetricName], r.Score)
	}

	aggregate := make(map[string]float64, len(byMetric))
	names := make([]string, 0, len(byMetric))
	for name, scores := range byMetric {
		aggregate[name] = stat.Mean(scores, nil)
		names = append(names, name)
	}
	sort.Strings(names)

	return aggregate, WeightedScore(aggregate, objectives), names
}

// WeightedScore is sum(w*s)/sum(w) over the metrics in scores, or 0 when
// scores is empty.
func WeightedScore(scores map[string]float64, objectives *PromptObjectives) float64 {
	if len(scores) == 0 {
		return 0
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]float64, len(names))
	weights := make([]float64, len(names))
	for i, name := range names {
		values[i] = scores[name]
		weights[i] = objectives.WeightFor(name)
	}
	return stat.Mean(values, weights)
}

func describeFailures(failures []TestCaseFailure) string {
	parts := make([]string, 0, len(failures))
	for _, f := range failures {
		parts = append(parts, fmt.Sprintf("#%d %s", f.TestCaseIndex, f.Reason))
	}
	return strings.Join(parts, ", ")
}
