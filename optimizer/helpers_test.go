package optimizer

import (
	"context"
	"strings"
	"sync"

	"github.com/teilomillet/promptopt/llm"
)

// scriptedLLM answers through a function and records every prompt.
type scriptedLLM struct {
	mu      sync.Mutex
	prompts []string
	respond func(ctx context.Context, prompt string) (string, error)
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, _ ...llm.GenerateOption) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.respond(ctx, prompt)
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) count(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.prompts {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

func constant(score float64) Evaluator {
	return EvaluatorFunc(func(PromptVariation, TestCase, string) EvaluationResult {
		return EvaluationResult{Score: score}
	})
}

const validAnalysis = `{
  "clarity_score": 6,
  "specificity_score": 4,
  "structure_score": 8,
  "completeness_score": 7,
  "overall_score": 6.25,
  "strengths": ["Short"],
  "weaknesses": ["Vague audience", "No length"],
  "potential_issues": ["Generic output"]
}`

const twoVersions = `Here are the improved prompts.

VERSION 1 (Focus on Clarity):
Write a 300-word blog post about artificial intelligence for beginners.

VERSION 2 (Focus on Specificity):
Write a blog post about how small businesses use AI.
Include three concrete examples.
`
