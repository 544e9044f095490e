package optimizer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/teilomillet/promptopt/llm"
)

// Evaluator scores one generated output. Implementations must be pure
// functions of their arguments and must not panic or fail: when no score can
// be computed they return NeutralScore with an explanation.
type Evaluator interface {
	Evaluate(variation PromptVariation, tc TestCase, output string) EvaluationResult
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(variation PromptVariation, tc TestCase, output string) EvaluationResult

func (f EvaluatorFunc) Evaluate(variation PromptVariation, tc TestCase, output string) EvaluationResult {
	return f(variation, tc, output)
}

func neutral(explanation string) EvaluationResult {
	return EvaluationResult{Score: NeutralScore, Explanation: explanation, Fallback: true}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// AccuracyEvaluator measures token-overlap recall of the expected answer in
// the output.
type AccuracyEvaluator struct{}

func NewAccuracyEvaluator() *AccuracyEvaluator {
	return &AccuracyEvaluator{}
}

func (AccuracyEvaluator) Evaluate(_ PromptVariation, tc TestCase, output string) EvaluationResult {
	if strings.TrimSpace(tc.Expected) == "" {
		return neutral("no expected answer available for comparison")
	}

	expected := make(map[string]struct{})
	for _, w := range words(tc.Expected) {
		expected[w] = struct{}{}
	}
	if len(expected) == 0 {
		return neutral("expected answer has no comparable words")
	}

	found := make(map[string]struct{})
	for _, w := range words(output) {
		if _, ok := expected[w]; ok {
			found[w] = struct{}{}
		}
	}

	score := float64(len(found)) / float64(len(expected))
	return EvaluationResult{
		Score:       clamp01(score),
		Explanation: fmt.Sprintf("%d of %d expected words present", len(found), len(expected)),
		Metadata:    map[string]any{"matched": len(found), "expected": len(expected)},
	}
}

// LengthUnit selects how BrevityEvaluator measures output length.
type LengthUnit int

const (
	// UnitCharacters counts Unicode code points of the trimmed output.
	UnitCharacters LengthUnit = iota
	// UnitTokens counts model tokens with a TokenCounter.
	UnitTokens
)

func (u LengthUnit) String() string {
	if u == UnitTokens {
		return "tokens"
	}
	return "characters"
}

// BrevityEvaluator rewards outputs close to TargetLength.
type BrevityEvaluator struct {
	TargetLength int
	Unit         LengthUnit
	Counter      llm.TokenCounter
}

// NewBrevityEvaluator measures length in characters.
func NewBrevityEvaluator(targetLength int) *BrevityEvaluator {
	return &BrevityEvaluator{TargetLength: targetLength, Unit: UnitCharacters}
}

// NewTokenBrevityEvaluator measures length in tokens counted by counter.
func NewTokenBrevityEvaluator(targetLength int, counter llm.TokenCounter) *BrevityEvaluator {
	return &BrevityEvaluator{TargetLength: targetLength, Unit: UnitTokens, Counter: counter}
}

// BrevityScore is 1 - clamp(|length-target|/target, 0, 1).
func BrevityScore(length, target int) float64 {
	if target <= 0 {
		return NeutralScore
	}
	deviation := float64(length-target) / float64(target)
	if deviation < 0 {
		deviation = -deviation
	}
	return 1 - clamp01(deviation)
}

func (e *BrevityEvaluator) Evaluate(_ PromptVariation, _ TestCase, output string) EvaluationResult {
	if e.TargetLength <= 0 {
		return neutral("brevity target length is not positive")
	}

	text := strings.TrimSpace(output)
	var length int
	switch {
	case e.Unit == UnitTokens && e.Counter != nil:
		length = e.Counter.CountTokens(text)
	case e.Unit == UnitTokens:
		return neutral("no token counter configured")
	default:
		length = utf8.RuneCountInString(text)
	}

	return EvaluationResult{
		Score:       BrevityScore(length, e.TargetLength),
		Explanation: fmt.Sprintf("length %d %s against target %d", length, e.Unit, e.TargetLength),
		Metadata:    map[string]any{"length": length, "target": e.TargetLength, "unit": e.Unit.String()},
	}
}

var (
	bulletLine   = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)])\s+\S`)
	numberedLine = regexp.MustCompile(`^\s*\d+[.)]\s+\S`)
	headingLine  = regexp.MustCompile(`^\s*(?:#{1,6}\s+\S|\*\*[^*]+\*\*\s*:?\s*$)`)
	contraction  = regexp.MustCompile(`(?i)\b\w+'(?:s|re|ve|ll|d|t|m)\b`)
)

func countLines(output string, re *regexp.Regexp) int {
	n := 0
	for _, line := range strings.Split(output, "\n") {
		if re.MatchString(line) {
			n++
		}
	}
	return n
}

func nonEmptyLines(output string) int {
	n := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

type styleMarker struct {
	name     string
	keywords []string
	check    func(output string) bool
}

var styleMarkers = []styleMarker{
	{"bullets", []string{"bullet", "bullets", "list"}, func(o string) bool { return countLines(o, bulletLine) >= 2 }},
	{"numbered", []string{"numbered", "steps", "step"}, func(o string) bool { return countLines(o, numberedLine) >= 2 }},
	{"json", []string{"json"}, func(o string) bool { return json.Valid([]byte(cleanJSONResponse(o))) }},
	{"headings", []string{"heading", "headings", "section", "sections", "markdown"}, func(o string) bool { return countLines(o, headingLine) >= 1 }},
	{"table", []string{"table"}, func(o string) bool { return strings.Count(o, "|") >= 4 && nonEmptyLines(o) >= 2 }},
	{"concise", []string{"concise", "brief", "briefly", "short", "succinct"}, func(o string) bool {
		return len(words(o)) > 0 && len(words(o)) <= 100
	}},
	{"haiku", []string{"haiku"}, func(o string) bool { return nonEmptyLines(o) == 3 }},
	{"formal", []string{"formal", "professional"}, func(o string) bool {
		return strings.TrimSpace(o) != "" && !contraction.MatchString(o) && !strings.Contains(o, "!")
	}},
	{"friendly", []string{"friendly", "casual", "conversational"}, func(o string) bool {
		return contraction.MatchString(o) || containsWord(o, "you")
	}},
}

func containsWord(text, word string) bool {
	for _, w := range words(text) {
		if w == word {
			return true
		}
	}
	return false
}

// StyleEvaluator checks the output for the tone and formatting markers the
// rendered prompt asks for. A "style" hint on the test case adds markers by
// name (comma separated). Without any requested marker the score is neutral.
type StyleEvaluator struct{}

func NewStyleEvaluator() *StyleEvaluator {
	return &StyleEvaluator{}
}

func (StyleEvaluator) Evaluate(variation PromptVariation, tc TestCase, output string) EvaluationResult {
	prompt, err := variation.Render(tc)
	if err != nil {
		return neutral(fmt.Sprintf("cannot render prompt: %v", err))
	}

	requested := make(map[string]bool)
	promptWords := make(map[string]struct{})
	for _, w := range words(prompt) {
		promptWords[w] = struct{}{}
	}
	for _, m := range styleMarkers {
		for _, kw := range m.keywords {
			if _, ok := promptWords[kw]; ok {
				requested[m.name] = true
				break
			}
		}
	}
	for _, name := range strings.Split(tc.Hints["style"], ",") {
		if name = strings.TrimSpace(strings.ToLower(name)); name != "" {
			requested[name] = true
		}
	}

	var checked, met []string
	for _, m := range styleMarkers {
		if !requested[m.name] {
			continue
		}
		checked = append(checked, m.name)
		if m.check(output) {
			met = append(met, m.name)
		}
	}

	if len(checked) == 0 {
		return EvaluationResult{
			Score:       NeutralScore,
			Explanation: "prompt requests no particular tone or format",
		}
	}
	return EvaluationResult{
		Score:       float64(len(met)) / float64(len(checked)),
		Explanation: fmt.Sprintf("%d of %d requested style markers present", len(met), len(checked)),
		Metadata:    map[string]any{"requested": checked, "met": met},
	}
}

// FormatComplianceEvaluator validates the output against the test case's
// FormatRequirement. Full compliance scores 1, partial compliance the
// fraction satisfied. A test case without a requirement is trivially
// compliant.
type FormatComplianceEvaluator struct{}

func NewFormatComplianceEvaluator() *FormatComplianceEvaluator {
	return &FormatComplianceEvaluator{}
}

func (FormatComplianceEvaluator) Evaluate(_ PromptVariation, tc TestCase, output string) EvaluationResult {
	req := tc.Format
	if req == nil {
		return EvaluationResult{Score: 1, Explanation: "no format requirement"}
	}

	switch req.Type {
	case FormatJSON:
		return evaluateJSON(req, output)
	case FormatRegex:
		return evaluatePatterns(req, output)
	case FormatList:
		minItems := req.MinItems
		if minItems <= 0 {
			minItems = 1
		}
		items := countLines(output, bulletLine)
		return EvaluationResult{
			Score:       clamp01(float64(items) / float64(minItems)),
			Explanation: fmt.Sprintf("%d list items, %d required", items, minItems),
			Metadata:    map[string]any{"items": items},
		}
	default:
		return neutral(fmt.Sprintf("unknown format type %q", req.Type))
	}
}

func evaluateJSON(req *FormatRequirement, output string) EvaluationResult {
	var doc any
	if err := json.Unmarshal([]byte(cleanJSONResponse(output)), &doc); err != nil {
		return EvaluationResult{Score: 0, Explanation: "output is not valid JSON"}
	}
	if len(req.RequiredFields) == 0 {
		return EvaluationResult{Score: 1, Explanation: "valid JSON"}
	}

	var missing []string
	for _, field := range req.RequiredFields {
		if !hasPath(doc, field) {
			missing = append(missing, field)
		}
	}
	present := len(req.RequiredFields) - len(missing)
	result := EvaluationResult{
		Score:       float64(present) / float64(len(req.RequiredFields)),
		Explanation: fmt.Sprintf("%d of %d required fields present", present, len(req.RequiredFields)),
	}
	if len(missing) > 0 {
		result.Metadata = map[string]any{"missing": missing}
	}
	return result
}

func hasPath(doc any, path string) bool {
	current := doc
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return false
		}
		if current, ok = obj[key]; !ok {
			return false
		}
	}
	return true
}

func evaluatePatterns(req *FormatRequirement, output string) EvaluationResult {
	if len(req.Patterns) == 0 {
		return neutral("regex format requirement has no patterns")
	}
	matched := 0
	for _, p := range req.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return neutral(fmt.Sprintf("invalid pattern %q: %v", p, err))
		}
		if re.MatchString(output) {
			matched++
		}
	}
	return EvaluationResult{
		Score:       float64(matched) / float64(len(req.Patterns)),
		Explanation: fmt.Sprintf("%d of %d patterns matched", matched, len(req.Patterns)),
	}
}
