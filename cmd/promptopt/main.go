// Command promptopt scores a prompt, asks the model to improve it and ranks
// the improved versions.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/teilomillet/promptopt/config"
	"github.com/teilomillet/promptopt/llm"
	"github.com/teilomillet/promptopt/utils"
)

// Version information (set via ldflags)
var version = "dev"

// Shared state built by the root command before any subcommand runs.
var (
	cfg       *config.Config
	logger    utils.Logger
	llmClient *llm.LLMImpl
)

// skipClient marks commands that must work without a usable provider.
const skipClient = "skip-client"

type rootFlags struct {
	provider string
	model    string
	logLevel string
	endpoint string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:   "promptopt",
		Short: "Score and improve LLM prompts",
		Long: `promptopt scores a prompt against weighted objectives, asks the model for a
structured analysis and three improved versions, then scores and ranks them.

Configuration is read from the environment (LLM_PROVIDER, LLM_MODEL,
GEMINI_API_KEY, ...). Flags override the environment.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd, flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.provider, "provider", "", "LLM provider (gemini, openai, ollama, mock)")
	pf.StringVar(&flags.model, "model", "", "model name")
	pf.StringVar(&flags.endpoint, "endpoint", "", "override the provider endpoint")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error, off)")

	rootCmd.AddCommand(
		optimizeCmd(),
		batchCmd(),
		serveCmd(),
		configCmd(),
		versionCmd(),
	)
	return rootCmd
}

func setup(cmd *cobra.Command, flags *rootFlags) error {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		return err
	}
	if flags.provider != "" {
		cfg.Provider = strings.ToLower(flags.provider)
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}
	if flags.endpoint != "" {
		cfg.Endpoint = flags.endpoint
	}
	if flags.logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(flags.logLevel)); err != nil {
			return err
		}
	}
	logger = utils.NewLogger(cfg.LogLevel)

	if cmd.Annotations[skipClient] == "true" {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	llmClient, err = llm.NewLLM(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows the effective configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       "Show the effective configuration",
		Annotations: map[string]string{skipClient: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Annotations: map[string]string{skipClient: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "promptopt %s\n", version)
		},
	}
}
