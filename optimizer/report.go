package optimizer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"
)

// SaveResult writes result as indented JSON.
func SaveResult(path string, result *OptimizationResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// PromptDiff renders a unified diff between two prompts.
func PromptDiff(original, improved string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(improved),
		FromFile: "original",
		ToFile:   "improved",
		Context:  3,
	})
}
