package optimizer

import (
	"github.com/teilomillet/promptopt/llm"
)

// DefaultObjectives returns the general-purpose objective set: clarity and
// effectiveness are must-haves, brevity and specificity should-haves.
func DefaultObjectives() *PromptObjectives {
	objectives, _ := NewPromptObjectives(
		NewObjective("clarity", "Clear and unambiguous instructions", PriorityMustHave, 2.0).WithTarget(0.9),
		NewObjective(MetricBrevity, "Concise yet complete", PriorityShouldHave, 1.5).WithTarget(DefaultBrevityTarget),
		NewObjective("specificity", "Specific requirements and constraints", PriorityShouldHave, 1.5).WithTarget(0.85),
		NewObjective("effectiveness", "Gets desired results", PriorityMustHave, 2.0).WithTarget(0.9),
	)
	return objectives
}

// DefaultTestCases are generic inputs used when a caller supplies none.
func DefaultTestCases() []TestCase {
	return []TestCase{
		NewTestCase("What is the capital of France?"),
		NewTestCase("Explain quantum computing simply"),
		NewTestCase("Write a haiku about spring"),
		NewTestCase("List 3 benefits of exercise"),
		NewTestCase("How do I make coffee?"),
	}
}

// RegisterDefaultEvaluators adds accuracy, brevity and style_match. A
// non-nil counter switches brevity to token units.
func RegisterDefaultEvaluators(o *Optimizer, brevityTarget int, counter llm.TokenCounter) error {
	if brevityTarget <= 0 {
		brevityTarget = DefaultBrevityTarget
	}
	brevity := NewBrevityEvaluator(brevityTarget)
	if counter != nil {
		brevity = NewTokenBrevityEvaluator(brevityTarget, counter)
	}

	for _, ev := range []NamedEvaluator{
		{MetricAccuracy, NewAccuracyEvaluator()},
		{MetricBrevity, brevity},
		{MetricStyleMatch, NewStyleEvaluator()},
	} {
		if err := o.AddEvaluator(ev.Name, ev.Evaluator); err != nil {
			return err
		}
	}
	return nil
}
