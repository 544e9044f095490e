package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teilomillet/promptopt/optimizer"
)

type optimizeFlags struct {
	prompt     string
	profile    string
	output     string
	focus      string
	iterations int
	diff       bool
	pick       bool
	noSave     bool
}

// optimizeCmd runs one optimization of a prompt
func optimizeCmd() *cobra.Command {
	flags := &optimizeFlags{}
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Score, analyze and improve a prompt",
		Long: `Score a prompt, ask the model for an analysis and three improved versions,
then score and rank the improvements.

Without --prompt the prompt is read from stdin; finish it with a blank line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.prompt, "prompt", "p", "", "prompt text (default: read from stdin)")
	f.StringVar(&flags.profile, "profile", "", "YAML profile with objectives, evaluators and test cases")
	f.StringVarP(&flags.output, "output", "o", "", "result file (default: OPTIMIZER_OUTPUT)")
	f.StringVar(&flags.focus, "focus", "", "improvement focus, e.g. clarity or specificity")
	f.IntVar(&flags.iterations, "iterations", 1, "feed the best version back in up to this many times")
	f.BoolVar(&flags.diff, "diff", false, "show a diff of every improved version")
	f.BoolVar(&flags.pick, "pick", false, "choose one of the improved versions when done")
	f.BoolVar(&flags.noSave, "no-save", false, "do not write the result file")
	return cmd
}

func runOptimize(cmd *cobra.Command, flags *optimizeFlags) error {
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	prompt := flags.prompt
	if prompt == "" {
		fmt.Fprintln(out, "Enter the prompt you want to optimize:")
		fmt.Fprintln(out, "(Press Enter twice when done)")
		var err error
		if prompt, err = readPrompt(in); err != nil {
			return fmt.Errorf("read prompt: %w", err)
		}
	}
	if strings.TrimSpace(prompt) == "" {
		return optimizer.ErrEmptyPrompt
	}

	profile, err := loadProfile(flags.profile)
	if err != nil {
		return err
	}
	var testCases []optimizer.TestCase
	if profile != nil {
		testCases = profile.TestCases
	}

	opts := []optimizer.OptimizerOption{optimizer.WithStageCallback(progress(cmd.ErrOrStderr()))}
	if flags.focus != "" {
		opts = append(opts, optimizer.WithFocus(flags.focus))
	}
	o, err := buildOptimizer(llmClient, profile, opts...)
	if err != nil {
		return err
	}

	history, err := o.Iterate(cmd.Context(), prompt, testCases, flags.iterations)
	if err != nil {
		return err
	}
	result := history[len(history)-1]
	for i, r := range history {
		if len(history) > 1 {
			fmt.Fprintf(out, "\n=== Iteration %d ===\n", i+1)
		}
		if err := writeReport(out, r, flags.diff); err != nil {
			return err
		}
	}

	if !flags.noSave {
		path := flags.output
		if path == "" {
			path = cfg.OutputPath
		}
		if err := optimizer.SaveResult(path, result); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nResults saved to %s\n", path)
	}

	if flags.pick {
		return pickImprovement(in, out, result)
	}
	return nil
}

func progress(w io.Writer) optimizer.StageCallback {
	messages := map[optimizer.Stage]string{
		optimizer.StageScoreOriginal:      "Scoring the original prompt...",
		optimizer.StageAnalyze:            "Analyzing prompt structure...",
		optimizer.StageGenerateCandidates: "Generating improvements...",
		optimizer.StageScoreCandidates:    "Scoring improved versions...",
	}
	return func(stage optimizer.Stage) {
		if msg, ok := messages[stage]; ok {
			fmt.Fprintln(w, msg)
		}
	}
}

// pickImprovement asks which improved version to keep and prints it.
func pickImprovement(in *bufio.Reader, out io.Writer, result *optimizer.OptimizationResult) error {
	if len(result.Improvements) == 0 {
		fmt.Fprintln(out, "No improved versions to choose from.")
		return nil
	}
	choices := make([]string, len(result.Improvements))
	for i := range result.Improvements {
		choices[i] = strconv.Itoa(i + 1)
	}
	fmt.Fprintf(out, "\nWould you like to use one of the improvements? (%s/n): ", strings.Join(choices, "/"))

	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(result.Improvements) {
		return nil
	}
	fmt.Fprintf(out, "\nSelected improvement %d:\n%s\n", n, result.Improvements[n-1].Prompt)
	return nil
}
