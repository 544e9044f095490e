package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teilomillet/promptopt/llm"
	"github.com/teilomillet/promptopt/metrics"
	"github.com/teilomillet/promptopt/utils"
)

var ErrEmptyPrompt = errors.New("prompt is empty")

// Stage is a step of one optimization run.
type Stage int

const (
	StageInit Stage = iota
	StageScoreOriginal
	StageAnalyze
	StageGenerateCandidates
	StageScoreCandidates
	StageRank
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "INIT"
	case StageScoreOriginal:
		return "SCORE_ORIGINAL"
	case StageAnalyze:
		return "ANALYZE"
	case StageGenerateCandidates:
		return "GENERATE_CANDIDATES"
	case StageScoreCandidates:
		return "SCORE_CANDIDATES"
	case StageRank:
		return "RANK"
	case StageDone:
		return "DONE"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// StageCallback is invoked as each stage begins.
type StageCallback func(stage Stage)

type OptimizerOption func(*Optimizer)

// Optimizer runs the score, analyze, improve, re-score cycle. Objectives and
// evaluators are snapshotted at the start of every run, so registering an
// evaluator while a run is in flight only affects later runs.
type Optimizer struct {
	llm          llm.LLM
	objectives   *PromptObjectives
	logger       utils.Logger
	debugManager *utils.DebugManager

	mu         sync.RWMutex
	evaluators []NamedEvaluator

	concurrency          int
	generationTimeout    time.Duration
	maxTokens            int
	analysisMaxTokens    int
	improvementMaxTokens int
	focus                string
	thresholds           []Threshold
	stageCallback        StageCallback
	minImprovement       float64
}

// NewOptimizer takes ownership of a copy of objectives.
func NewOptimizer(client llm.LLM, objectives *PromptObjectives, opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{
		llm:                  client,
		objectives:           objectives.Clone(),
		logger:               utils.NewNopLogger(),
		concurrency:          DefaultConcurrency,
		generationTimeout:    DefaultGenerationTimeout,
		analysisMaxTokens:    DefaultAnalysisMaxTokens,
		improvementMaxTokens: DefaultImprovementMaxTokens,
		focus:                "balanced",
		thresholds:           DefaultThresholds,
		minImprovement:       DefaultMinImprovement,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AddEvaluator registers ev under the metric name name.
func (o *Optimizer) AddEvaluator(name string, ev Evaluator) error {
	if strings.TrimSpace(name) == "" || ev == nil {
		return fmt.Errorf("%w: evaluator needs a name and an implementation", ErrInvalidEvaluator)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, existing := range o.evaluators {
		if existing.Name == name {
			return fmt.Errorf("%w: %s", ErrDuplicateEvaluator, name)
		}
	}
	o.evaluators = append(o.evaluators, NamedEvaluator{Name: name, Evaluator: ev})
	return nil
}

// Evaluators lists registered metric names in registration order.
func (o *Optimizer) Evaluators() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, len(o.evaluators))
	for i, ev := range o.evaluators {
		names[i] = ev.Name
	}
	return names
}

// Objectives returns a copy of the optimizer's objectives.
func (o *Optimizer) Objectives() *PromptObjectives {
	return o.objectives.Clone()
}

func (o *Optimizer) newScorer() *Scorer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return NewScorer(o.objectives, o.evaluators,
		WithScorerConcurrency(o.concurrency),
		WithScorerTimeout(o.generationTimeout),
		WithScorerLogger(o.logger),
	)
}

func (o *Optimizer) newImprover() *Improver {
	return NewImprover(o.llm,
		WithImproverLogger(o.logger),
		WithImproverDebug(o.debugManager),
		WithTokenLimits(o.analysisMaxTokens, o.improvementMaxTokens),
		WithImproverFocus(o.focus),
		WithAnalysisSchema(supportsSchema(o.llm)),
	)
}

func supportsSchema(client llm.LLM) bool {
	s, ok := client.(interface{ SupportsJSONSchema() bool })
	return ok && s.SupportsJSONSchema()
}

func (o *Optimizer) generate(ctx context.Context, prompt string) (string, error) {
	var opts []llm.GenerateOption
	if o.maxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(o.maxTokens))
	}
	return o.llm.Generate(ctx, prompt, opts...)
}

// Score runs a single scoring pass for variation.
func (o *Optimizer) Score(ctx context.Context, variation PromptVariation, testCases []TestCase) (*ScoringResult, error) {
	if len(testCases) == 0 {
		testCases = DefaultTestCases()
	}
	return o.newScorer().Run(ctx, variation, testCases, o.generate)
}

// Improvement is a ranked candidate prompt.
type Improvement struct {
	Version       string             `json:"version"`
	Variation     string             `json:"variation"`
	Prompt        string             `json:"prompt"`
	Scores        map[string]float64 `json:"scores"`
	WeightedScore float64            `json:"weighted_score"`
	FailedCases   int                `json:"failed_test_cases,omitempty"`
}

// Excluded is a candidate left out of the ranking, with the reason.
type Excluded struct {
	Version   string `json:"version"`
	Variation string `json:"variation"`
	Prompt    string `json:"prompt"`
	Reason    string `json:"reason"`
}

// OptimizationResult is the outcome of one run.
type OptimizationResult struct {
	RunID                 string             `json:"run_id"`
	StartedAt             time.Time          `json:"started_at"`
	FinishedAt            time.Time          `json:"finished_at"`
	OriginalPrompt        string             `json:"original_prompt"`
	OriginalScores        map[string]float64 `json:"original_scores"`
	OriginalWeightedScore float64            `json:"original_weighted_score"`
	OriginalScored        bool               `json:"original_scored"`
	Analysis              Analysis           `json:"analysis"`
	AnalysisStatus        AnalysisStatus     `json:"analysis_status"`
	Improvements          []Improvement      `json:"improvements"`
	Excluded              []Excluded         `json:"excluded,omitempty"`
	Recommendations       []string           `json:"recommendations"`
	Errors                []string           `json:"errors,omitempty"`

	Original *ScoringResult `json:"-"`
}

// Best returns the highest ranked improvement.
func (r *OptimizationResult) Best() (Improvement, bool) {
	if len(r.Improvements) == 0 {
		return Improvement{}, false
	}
	return r.Improvements[0], true
}

// Delta is the weighted score gain of the best improvement over the
// original, or 0 when there is nothing to compare.
func (r *OptimizationResult) Delta() float64 {
	best, ok := r.Best()
	if !ok || !r.OriginalScored {
		return 0
	}
	return best.WeightedScore - r.OriginalWeightedScore
}

func (o *Optimizer) enter(stage Stage) {
	o.logger.Debug("Optimization stage", "stage", stage.String())
	if o.stageCallback != nil {
		o.stageCallback(stage)
	}
}

// ScoreAndImprove scores prompt, has it analyzed and revised, scores every
// revision with the same test cases and evaluators and ranks the revisions.
// Empty testCases selects DefaultTestCases. Only invalid arguments and
// cancellation of ctx fail the run.
func (o *Optimizer) ScoreAndImprove(ctx context.Context, prompt string, testCases []TestCase) (*OptimizationResult, error) {
	o.enter(StageInit)
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	if len(testCases) == 0 {
		testCases = DefaultTestCases()
	}
	scorer := o.newScorer()
	if len(scorer.evaluators) == 0 {
		return nil, ErrNoEvaluators
	}
	improver := o.newImprover()

	result := &OptimizationResult{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now(),
		OriginalPrompt: prompt,
		OriginalScores: map[string]float64{},
		Improvements:   []Improvement{},
	}

	o.enter(StageScoreOriginal)
	original, err := scorer.Run(ctx, NewVariation("original", prompt, nil), testCases, o.generate)
	if err != nil {
		return nil, err
	}
	result.Original = original
	result.OriginalScores = original.AggregateScores
	result.OriginalWeightedScore = original.WeightedScore
	result.OriginalScored = original.Scored
	if original.Scored {
		metrics.WeightedScore.WithLabelValues("original").Observe(original.WeightedScore)
	} else {
		result.Errors = append(result.Errors, "original prompt could not be scored: "+describeFailures(original.Failures))
	}

	o.enter(StageAnalyze)
	analysis := improver.Analyze(ctx, prompt)
	result.Analysis = analysis.Analysis
	result.AnalysisStatus = analysis.Status
	if analysis.Err != nil {
		result.Errors = append(result.Errors, analysis.Err.Error())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.enter(StageGenerateCandidates)
	candidates, err := improver.GenerateImprovements(ctx, prompt, analysis.Analysis)
	if err != nil {
		o.logger.Warn("Improvement generation failed", "error", err)
		result.Errors = append(result.Errors, err.Error())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.enter(StageScoreCandidates)
	for i, candidate := range candidates {
		version := fmt.Sprintf("Version %d", i+1)
		variation := NewVariation(fmt.Sprintf("improved_v%d", i+1), candidate, nil)

		scores, err := scorer.Run(ctx, variation, testCases, o.generate)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.Excluded = append(result.Excluded, Excluded{version, variation.Name, candidate, err.Error()})
			continue
		}
		if !scores.Scored {
			result.Excluded = append(result.Excluded, Excluded{version, variation.Name, candidate,
				"no metric could be scored: " + describeFailures(scores.Failures)})
			continue
		}
		metrics.WeightedScore.WithLabelValues("candidate").Observe(scores.WeightedScore)
		result.Improvements = append(result.Improvements, Improvement{
			Version:       version,
			Variation:     variation.Name,
			Prompt:        candidate,
			Scores:        scores.AggregateScores,
			WeightedScore: scores.WeightedScore,
			FailedCases:   len(scores.Failures),
		})
	}

	o.enter(StageRank)
	sort.SliceStable(result.Improvements, func(i, j int) bool {
		return result.Improvements[i].WeightedScore > result.Improvements[j].WeightedScore
	})
	result.Recommendations = Recommend(result.OriginalScores, result.Analysis, o.thresholds)

	o.enter(StageDone)
	result.FinishedAt = time.Now()
	outcome := "no_candidates"
	if len(result.Improvements) > 0 {
		outcome = "ok"
	}
	metrics.OptimizationRuns.WithLabelValues(outcome).Inc()
	o.logger.Info("Optimization complete",
		"run_id", result.RunID,
		"original_score", result.OriginalWeightedScore,
		"candidates", len(result.Improvements),
		"excluded", len(result.Excluded))
	return result, nil
}

// Iterate repeats ScoreAndImprove, feeding the best candidate of each round
// into the next. It stops after rounds runs, when no candidate beats the
// current prompt by at least the minimum improvement, or on error. The
// history of runs is returned to the caller.
func (o *Optimizer) Iterate(ctx context.Context, prompt string, testCases []TestCase, rounds int) ([]*OptimizationResult, error) {
	if rounds < 1 {
		rounds = 1
	}
	if len(testCases) == 0 {
		testCases = DefaultTestCases()
	}

	var history []*OptimizationResult
	current := prompt
	for i := 0; i < rounds; i++ {
		result, err := o.ScoreAndImprove(ctx, current, testCases)
		if err != nil {
			return history, fmt.Errorf("optimization failed at iteration %d: %w", i+1, err)
		}
		history = append(history, result)

		best, ok := result.Best()
		if !ok || result.Delta() < o.minImprovement {
			o.logger.Info("Iteration converged", "iteration", i+1, "delta", result.Delta())
			break
		}
		current = best.Prompt
	}
	return history, nil
}
