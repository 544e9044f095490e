package optimizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/teilomillet/promptopt/llm"
)

// Analysis is the model's structured self-assessment of a prompt. Scores are
// on a 0-10 scale.
type Analysis struct {
	ClarityScore       float64  `json:"clarity_score" validate:"min=0,max=10" jsonschema:"minimum=0,maximum=10"`
	SpecificityScore   float64  `json:"specificity_score" validate:"min=0,max=10" jsonschema:"minimum=0,maximum=10"`
	StructureScore     float64  `json:"structure_score" validate:"min=0,max=10" jsonschema:"minimum=0,maximum=10"`
	CompletenessScore  float64  `json:"completeness_score" validate:"min=0,max=10" jsonschema:"minimum=0,maximum=10"`
	EffectivenessScore *float64 `json:"effectiveness_score,omitempty" validate:"omitempty,min=0,max=10" jsonschema:"minimum=0,maximum=10"`
	OverallScore       float64  `json:"overall_score" validate:"min=0,max=10" jsonschema:"minimum=0,maximum=10"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	PotentialIssues    []string `json:"potential_issues"`
	MissingElements    []string `json:"missing_elements,omitempty"`
	Summary            string   `json:"summary,omitempty"`
	Explanation        string   `json:"explanation,omitempty" jsonschema:"-"`
}

// Dimension returns a named score. Both "clarity" and "clarity_score" work.
func (a Analysis) Dimension(name string) (float64, bool) {
	switch strings.TrimSuffix(name, "_score") {
	case "clarity":
		return a.ClarityScore, true
	case "specificity":
		return a.SpecificityScore, true
	case "structure":
		return a.StructureScore, true
	case "completeness":
		return a.CompletenessScore, true
	case "effectiveness":
		if a.EffectivenessScore == nil {
			return 0, false
		}
		return *a.EffectivenessScore, true
	case "overall":
		return a.OverallScore, true
	}
	return 0, false
}

// DefaultAnalysis is substituted whenever an analysis cannot be obtained.
func DefaultAnalysis(reason string) Analysis {
	issues := []string{"Analysis unavailable"}
	if reason != "" {
		issues = []string{reason}
	}
	return Analysis{
		ClarityScore:      5,
		SpecificityScore:  5,
		StructureScore:    5,
		CompletenessScore: 5,
		OverallScore:      5,
		Strengths:         []string{"Unable to parse analysis"},
		Weaknesses:        []string{"Analysis failed"},
		PotentialIssues:   issues,
		Explanation:       "parse failure",
	}
}

// AnalysisStatus tags how an AnalysisResult was obtained.
type AnalysisStatus int

const (
	AnalysisOK AnalysisStatus = iota
	AnalysisParseFailed
	AnalysisGenerationFailed
)

func (s AnalysisStatus) String() string {
	switch s {
	case AnalysisOK:
		return "ok"
	case AnalysisParseFailed:
		return "parse_failed"
	case AnalysisGenerationFailed:
		return "generation_failed"
	default:
		return "unknown"
	}
}

func (s AnalysisStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AnalysisStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ok":
		*s = AnalysisOK
	case "parse_failed":
		*s = AnalysisParseFailed
	case "generation_failed":
		*s = AnalysisGenerationFailed
	default:
		return fmt.Errorf("unknown analysis status %q", string(text))
	}
	return nil
}

// AnalysisResult is either a parsed analysis (AnalysisOK) or the default
// analysis together with the reason it was substituted.
type AnalysisResult struct {
	Analysis Analysis
	Status   AnalysisStatus
	Err      error
}

func (r AnalysisResult) OK() bool {
	return r.Status == AnalysisOK
}

// ParseError reports a structured response that could not be parsed.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse analysis response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// rawAnalysis accepts both the *_score keys and the bare dimension names
// some models answer with.
type rawAnalysis struct {
	ClarityScore       *float64 `json:"clarity_score"`
	Clarity            *float64 `json:"clarity"`
	SpecificityScore   *float64 `json:"specificity_score"`
	Specificity        *float64 `json:"specificity"`
	StructureScore     *float64 `json:"structure_score"`
	Structure          *float64 `json:"structure"`
	CompletenessScore  *float64 `json:"completeness_score"`
	Completeness       *float64 `json:"completeness"`
	EffectivenessScore *float64 `json:"effectiveness_score"`
	Effectiveness      *float64 `json:"effectiveness"`
	OverallScore       *float64 `json:"overall_score"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	PotentialIssues    []string `json:"potential_issues"`
	MissingElements    []string `json:"missing_elements"`
	Summary            string   `json:"summary"`
	OneLineSummary     string   `json:"one_line_summary"`
}

func pick(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

// ParseAnalysis parses a model response into an Analysis. It never fails:
// malformed input yields the default analysis tagged AnalysisParseFailed.
func ParseAnalysis(response string) AnalysisResult {
	analysis, err := parseAnalysis(response)
	if err != nil {
		perr := &ParseError{Raw: response, Err: err}
		return AnalysisResult{
			Analysis: DefaultAnalysis(perr.Error()),
			Status:   AnalysisParseFailed,
			Err:      perr,
		}
	}
	return AnalysisResult{Analysis: analysis, Status: AnalysisOK}
}

func parseAnalysis(response string) (Analysis, error) {
	cleaned := cleanJSONResponse(response)
	if cleaned == "" {
		return Analysis{}, errors.New("empty response")
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Analysis{}, err
	}

	dims := []struct {
		name  string
		value *float64
	}{
		{"clarity_score", pick(raw.ClarityScore, raw.Clarity)},
		{"specificity_score", pick(raw.SpecificityScore, raw.Specificity)},
		{"structure_score", pick(raw.StructureScore, raw.Structure)},
		{"completeness_score", pick(raw.CompletenessScore, raw.Completeness)},
	}
	var sum float64
	for _, d := range dims {
		if d.value == nil {
			return Analysis{}, fmt.Errorf("missing field %s", d.name)
		}
		sum += *d.value
	}

	a := Analysis{
		ClarityScore:       *dims[0].value,
		SpecificityScore:   *dims[1].value,
		StructureScore:     *dims[2].value,
		CompletenessScore:  *dims[3].value,
		EffectivenessScore: pick(raw.EffectivenessScore, raw.Effectiveness),
		Strengths:          raw.Strengths,
		Weaknesses:         raw.Weaknesses,
		PotentialIssues:    raw.PotentialIssues,
		MissingElements:    raw.MissingElements,
		Summary:            raw.Summary,
	}
	if a.Summary == "" {
		a.Summary = raw.OneLineSummary
	}
	if raw.OverallScore != nil {
		a.OverallScore = *raw.OverallScore
	} else {
		a.OverallScore = sum / float64(len(dims))
	}

	if err := llm.Validate(&a); err != nil {
		return Analysis{}, fmt.Errorf("invalid analysis: %w", err)
	}
	return a, nil
}
