package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/teilomillet/promptopt/optimizer"
)

// batchCmd optimizes every prompt listed in a profile
func batchCmd() *cobra.Command {
	var (
		interval    time.Duration
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch <profile.yaml>",
		Short: "Optimize every prompt listed in a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := optimizer.LoadProfile(args[0])
			if err != nil {
				return err
			}
			if len(profile.Prompts) == 0 {
				return fmt.Errorf("profile %s lists no prompts", args[0])
			}

			o, err := buildOptimizer(llmClient, profile)
			if err != nil {
				return err
			}
			batch := optimizer.NewBatchOptimizer(o)
			batch.SetConcurrency(concurrency)
			if interval > 0 {
				batch.SetRateLimit(rate.Every(interval), 1)
			} else {
				batch.SetRateLimit(rate.Inf, 1)
			}

			items := make([]optimizer.BatchItem, len(profile.Prompts))
			for i, item := range profile.Prompts {
				if len(item.TestCases) == 0 {
					item.TestCases = profile.TestCases
				}
				items[i] = item
			}

			results := batch.OptimizePrompts(cmd.Context(), items)
			return writeBatchSummary(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 3*time.Second, "minimum time between starting two prompts (0 disables)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "prompts optimized at the same time")
	return cmd
}
