package optimizer

import (
	"fmt"
	"strings"
)

const analysisPromptFormat = `Analyze the following prompt and provide a detailed, critical assessment.

PROMPT: %s

Score each dimension from 0 to 10:
1. Clarity: Is the instruction clear and unambiguous?
2. Specificity: Does it provide enough context and constraints?
3. Structure: Is it well-organized and easy to follow?
4. Completeness: Does it cover all necessary aspects?
5. Effectiveness: Will it likely produce the desired output?

Also identify strengths, weaknesses, potential issues and missing elements.

Respond with a raw JSON object only, no markdown:
{
  "clarity_score": <number>,
  "specificity_score": <number>,
  "structure_score": <number>,
  "completeness_score": <number>,
  "effectiveness_score": <number>,
  "overall_score": <average of all scores>,
  "strengths": ["strength1", "strength2"],
  "weaknesses": ["weakness1", "weakness2"],
  "potential_issues": ["issue1", "issue2"],
  "missing_elements": ["element1"],
  "summary": "one line assessment"
}`

const improvementPromptFormat = `Given this prompt and its analysis, create 3 improved versions.

ORIGINAL PROMPT: %s

ANALYSIS:
- Clarity Score: %s/10
- Specificity Score: %s/10
- Structure Score: %s/10
- Completeness Score: %s/10
- Weaknesses: %s
- Missing elements: %s

OPTIMIZATION FOCUS: %s

Create 3 improved versions that address the weaknesses while keeping the original intent:

VERSION 1 (Focus on Clarity): Make the prompt clearer and more direct
VERSION 2 (Focus on Specificity): Add more specific constraints and context
VERSION 3 (Focus on Structure): Reorganize for better flow and comprehension

Start each version on its own line with the label "VERSION <n>:" and put only
the improved prompt text after it.`

func buildAnalysisPrompt(prompt string) string {
	return fmt.Sprintf(analysisPromptFormat, prompt)
}

func formatScore(v float64) string {
	return strings.TrimSuffix(strings.TrimSuffix(fmt.Sprintf("%.1f", v), "0"), ".")
}

func buildImprovementPrompt(prompt string, a Analysis, focus string) string {
	if focus == "" {
		focus = "balanced"
	}
	missing := strings.Join(a.MissingElements, ", ")
	if missing == "" {
		missing = "none noted"
	}
	return fmt.Sprintf(improvementPromptFormat,
		prompt,
		formatScore(a.ClarityScore),
		formatScore(a.SpecificityScore),
		formatScore(a.StructureScore),
		formatScore(a.CompletenessScore),
		strings.Join(a.Weaknesses, ", "),
		missing,
		focus,
	)
}
