package optimizer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// FormatType names the structural check a test case asks for.
type FormatType string

const (
	FormatJSON  FormatType = "json"
	FormatRegex FormatType = "regex"
	FormatList  FormatType = "list"
)

// FormatRequirement describes the structure a generated output must have.
type FormatRequirement struct {
	Type FormatType `json:"type" yaml:"type"`
	// RequiredFields are dotted paths that must exist in a JSON object.
	RequiredFields []string `json:"required_fields,omitempty" yaml:"required_fields,omitempty"`
	// Patterns must all match somewhere in the output.
	Patterns []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	// MinItems is the number of list items expected.
	MinItems int `json:"min_items,omitempty" yaml:"min_items,omitempty"`
}

// TestCase is a fixed input used to elicit comparable output from every
// variation in a run.
type TestCase struct {
	Input    string             `json:"input" yaml:"input"`
	Expected string             `json:"expected,omitempty" yaml:"expected,omitempty"`
	Hints    map[string]string  `json:"hints,omitempty" yaml:"hints,omitempty"`
	Format   *FormatRequirement `json:"format,omitempty" yaml:"format,omitempty"`
}

// NewTestCase returns a test case with only an input.
func NewTestCase(input string) TestCase {
	return TestCase{Input: input}
}

// PromptVariation is one candidate prompt. Template is either literal text
// or a text/template over Parameters and the test case input.
type PromptVariation struct {
	Name       string         `json:"name"`
	Template   string         `json:"template"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// NewVariation copies params so later edits to the caller's map cannot
// reach the variation.
func NewVariation(name, tmpl string, params map[string]any) PromptVariation {
	v := PromptVariation{Name: name, Template: tmpl}
	if len(params) > 0 {
		v.Parameters = make(map[string]any, len(params))
		for k, val := range params {
			v.Parameters[k] = val
		}
	}
	return v
}

// Render produces the concrete prompt for one test case. A variation with
// parameters is a template that sees the parameters plus "input"; without
// parameters the template is literal text, braces included. When the
// template does not place the input itself, a non-empty input is appended
// after a blank line.
func (v PromptVariation) Render(tc TestCase) (string, error) {
	text := v.Template
	if len(v.Parameters) > 0 && strings.Contains(v.Template, "{{") {
		tmpl, err := template.New(v.Name).Option("missingkey=error").Parse(v.Template)
		if err != nil {
			return "", fmt.Errorf("parse template %s: %w", v.Name, err)
		}
		data := make(map[string]any, len(v.Parameters)+1)
		for k, val := range v.Parameters {
			data[k] = val
		}
		data["input"] = tc.Input

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("render template %s: %w", v.Name, err)
		}
		text = buf.String()
		if strings.Contains(v.Template, ".input") {
			return text, nil
		}
	}

	if strings.TrimSpace(tc.Input) == "" {
		return text, nil
	}
	return strings.TrimRight(text, "\n ") + "\n\nInput: " + tc.Input, nil
}

// EvaluationResult is one evaluator's verdict on one test case output.
type EvaluationResult struct {
	MetricName    string         `json:"metric_name"`
	Score         float64        `json:"score"`
	Explanation   string         `json:"explanation,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	TestCaseIndex int            `json:"test_case"`
	// Fallback marks a neutral score returned because no score could be computed.
	Fallback bool `json:"fallback,omitempty"`
	// Failed marks a zero-weight placeholder for a test case whose output was
	// never generated. Aggregation skips it.
	Failed bool `json:"failed,omitempty"`
}
