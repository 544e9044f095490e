package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/teilomillet/promptopt/optimizer"
)

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeReport prints a human-readable summary of one optimization run.
func writeReport(w io.Writer, r *optimizer.OptimizationResult, showDiff bool) error {
	if r.OriginalScored {
		fmt.Fprintf(w, "\nOriginal Prompt Score: %.2f\n", r.OriginalWeightedScore)
	} else {
		fmt.Fprintln(w, "\nOriginal Prompt Score: n/a (no metric could be scored)")
	}
	fmt.Fprintln(w, "\nDetailed Scores:")
	for _, metric := range sortedKeys(r.OriginalScores) {
		fmt.Fprintf(w, "  - %s: %.2f\n", metric, r.OriginalScores[metric])
	}

	a := r.Analysis
	fmt.Fprintf(w, "\nAnalysis (%s):\n", r.AnalysisStatus)
	fmt.Fprintf(w, "  - Overall Score: %.1f/10\n", a.OverallScore)
	fmt.Fprintf(w, "  - Clarity %.1f, Specificity %.1f, Structure %.1f, Completeness %.1f\n",
		a.ClarityScore, a.SpecificityScore, a.StructureScore, a.CompletenessScore)
	if len(a.Strengths) > 0 {
		fmt.Fprintf(w, "  - Strengths: %s\n", strings.Join(a.Strengths, ", "))
	}
	if len(a.Weaknesses) > 0 {
		fmt.Fprintf(w, "  - Weaknesses: %s\n", strings.Join(a.Weaknesses, ", "))
	}
	if a.Summary != "" {
		fmt.Fprintf(w, "  - Summary: %s\n", a.Summary)
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}

	fmt.Fprintln(w, "\nImproved Versions:")
	if len(r.Improvements) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for i, imp := range r.Improvements {
		fmt.Fprintf(w, "\n--- #%d %s (Score: %.2f", i+1, imp.Version, imp.WeightedScore)
		if imp.FailedCases > 0 {
			fmt.Fprintf(w, ", %d test cases failed", imp.FailedCases)
		}
		fmt.Fprintln(w, ") ---")
		fmt.Fprintln(w, imp.Prompt)
		if showDiff {
			diff, err := optimizer.PromptDiff(r.OriginalPrompt, imp.Prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(w)
			fmt.Fprint(w, diff)
		}
	}

	for _, ex := range r.Excluded {
		fmt.Fprintf(w, "\nExcluded %s: %s\n", ex.Version, ex.Reason)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
	return nil
}

// writeBatchSummary prints one row per prompt of a batch.
func writeBatchSummary(w io.Writer, results []optimizer.BatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tORIGINAL\tBEST\tDELTA\tSTATUS")
	for _, r := range results {
		status := "ok"
		original, best := "-", "-"
		if r.Err != nil {
			status = "error: " + r.Error
		} else if r.Result != nil {
			if r.Result.OriginalScored {
				original = fmt.Sprintf("%.2f", r.Result.OriginalWeightedScore)
			}
			if b, ok := r.Result.Best(); ok {
				best = fmt.Sprintf("%.2f", b.WeightedScore)
			} else {
				status = "no candidates"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+.2f\t%s\n", r.Name, original, best, r.ScoreImprovement, status)
	}
	return tw.Flush()
}
