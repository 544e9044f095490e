package optimizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/teilomillet/promptopt/llm"
	"github.com/teilomillet/promptopt/metrics"
	"github.com/teilomillet/promptopt/utils"
)

// versionLabel matches lines such as "VERSION 1:", "**Version 2 (Focus on
// Specificity):**" or "## Version 3".
var versionLabel = regexp.MustCompile(`(?i)^\s*(?:\*\*|#{1,6}\s*)?version\s*(\d+)\b[^\n]*$`)

// Improver asks the model to assess a prompt and to propose revisions.
type Improver struct {
	llm                  llm.LLM
	logger               utils.Logger
	debugManager         *utils.DebugManager
	analysisMaxTokens    int
	improvementMaxTokens int
	focus                string
	useSchema            bool
}

type ImproverOption func(*Improver)

func WithImproverLogger(logger utils.Logger) ImproverOption {
	return func(im *Improver) {
		if logger != nil {
			im.logger = logger
		}
	}
}

func WithImproverDebug(dm *utils.DebugManager) ImproverOption {
	return func(im *Improver) {
		im.debugManager = dm
	}
}

func WithTokenLimits(analysis, improvement int) ImproverOption {
	return func(im *Improver) {
		if analysis > 0 {
			im.analysisMaxTokens = analysis
		}
		if improvement > 0 {
			im.improvementMaxTokens = improvement
		}
	}
}

func WithImproverFocus(focus string) ImproverOption {
	return func(im *Improver) {
		im.focus = focus
	}
}

// WithAnalysisSchema sends the Analysis JSON schema with the analysis request
// so providers with structured output return a well-formed record.
func WithAnalysisSchema(enabled bool) ImproverOption {
	return func(im *Improver) {
		im.useSchema = enabled
	}
}

func NewImprover(client llm.LLM, opts ...ImproverOption) *Improver {
	im := &Improver{
		llm:                  client,
		logger:               utils.NewNopLogger(),
		analysisMaxTokens:    DefaultAnalysisMaxTokens,
		improvementMaxTokens: DefaultImprovementMaxTokens,
		focus:                "balanced",
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Analyze requests a structured assessment of prompt. Generation and parse
// failures are reported through the result status; the analysis is then the
// default one.
func (im *Improver) Analyze(ctx context.Context, prompt string) AnalysisResult {
	request := buildAnalysisPrompt(prompt)
	im.debugManager.LogPrompt("analysis", request)

	opts := []llm.GenerateOption{llm.WithMaxTokens(im.analysisMaxTokens)}
	if im.useSchema {
		if schema, err := llm.SchemaFor(&Analysis{}); err == nil {
			opts = append(opts, llm.WithResponseSchema(schema))
		} else {
			im.logger.Warn("Failed to build analysis schema", "error", err)
		}
	}

	response, err := im.llm.Generate(ctx, request, opts...)
	if err != nil {
		im.logger.Warn("Analysis request failed, using default analysis", "error", err)
		metrics.AnalysisFallbacks.WithLabelValues(AnalysisGenerationFailed.String()).Inc()
		return AnalysisResult{
			Analysis: DefaultAnalysis(fmt.Sprintf("analysis request failed: %v", err)),
			Status:   AnalysisGenerationFailed,
			Err:      err,
		}
	}
	im.debugManager.LogResponse("analysis", response)

	result := ParseAnalysis(response)
	if !result.OK() {
		metrics.AnalysisFallbacks.WithLabelValues(AnalysisParseFailed.String()).Inc()
		im.logger.Warn("Analysis response could not be parsed, using default analysis", "error", result.Err)
	}
	return result
}

// GenerateImprovements asks for up to MaxImprovements revisions addressing
// the analysis. Only a failed generation call is an error; an unparseable
// response yields no candidates.
func (im *Improver) GenerateImprovements(ctx context.Context, prompt string, analysis Analysis) ([]string, error) {
	request := buildImprovementPrompt(prompt, analysis, im.focus)
	im.debugManager.LogPrompt("improvement", request)

	response, err := im.llm.Generate(ctx, request, llm.WithMaxTokens(im.improvementMaxTokens))
	if err != nil {
		return nil, fmt.Errorf("failed to generate improved prompts: %w", err)
	}
	im.debugManager.LogResponse("improvement", response)

	candidates := ParseImprovements(response)
	im.logger.Debug("Parsed improvement candidates", "count", len(candidates))
	return candidates, nil
}

// ParseImprovements splits a response on explicit version label lines.
// Text before the first label is discarded, as are label lines, empty
// segments and repeats. At most MaxImprovements are returned in source order.
func ParseImprovements(response string) []string {
	var (
		candidates []string
		current    []string
		inVersion  bool
		seen       = make(map[string]bool)
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		text = strings.Trim(text, "*`\"")
		text = strings.TrimSpace(text)
		current = current[:0]
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		candidates = append(candidates, text)
	}

	for _, line := range strings.Split(strings.ReplaceAll(response, "\r\n", "\n"), "\n") {
		if versionLabel.MatchString(line) {
			if inVersion {
				flush()
			}
			inVersion = true
			if rest := labelRemainder(line); rest != "" {
				current = append(current, rest)
			}
			continue
		}
		if inVersion {
			current = append(current, line)
		}
	}
	if inVersion {
		flush()
	}

	if len(candidates) > MaxImprovements {
		candidates = candidates[:MaxImprovements]
	}
	return candidates
}

// labelRemainder returns prompt text that follows the label on the same line,
// as in `VERSION 1: Write a 500-word post...`. A parenthesised focus note is
// dropped.
func labelRemainder(line string) string {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(line[idx+1:])
	rest = strings.TrimSpace(strings.Trim(rest, "*#"))
	return rest
}
