package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/teilomillet/promptopt/config"
	"github.com/teilomillet/promptopt/llm"
	"github.com/teilomillet/promptopt/optimizer"
)

// readPrompt reads lines until the first blank line or EOF.
func readPrompt(r *bufio.Reader) (string, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}
	return strings.Join(lines, "\n"), nil
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func printConfig(w io.Writer, c *config.Config) {
	fmt.Fprintln(w, "LLM:")
	fmt.Fprintf(w, "  Provider:    %s\n", c.Provider)
	fmt.Fprintf(w, "  Model:       %s\n", c.Model)
	fmt.Fprintf(w, "  Endpoint:    %s\n", orDefault(c.Endpoint, "(provider default)"))
	fmt.Fprintf(w, "  Temperature: %.2f\n", c.Temperature)
	fmt.Fprintf(w, "  Max Tokens:  %d\n", c.MaxTokens)
	fmt.Fprintf(w, "  Timeout:     %s\n", c.Timeout)
	fmt.Fprintf(w, "  Max Retries: %d\n", c.MaxRetries)
	fmt.Fprintf(w, "  Rate Limit:  %.2f/s (burst %d)\n", c.RateLimit, c.RateBurst)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Optimizer:")
	fmt.Fprintf(w, "  Concurrency:        %d\n", c.Concurrency)
	fmt.Fprintf(w, "  Generation Timeout: %s\n", c.GenerationTimeout)
	fmt.Fprintf(w, "  Brevity Target:     %d\n", c.BrevityTarget)
	fmt.Fprintf(w, "  Analysis Tokens:    %d\n", c.AnalysisMaxTokens)
	fmt.Fprintf(w, "  Improvement Tokens: %d\n", c.ImprovementMaxTokens)
	fmt.Fprintf(w, "  Output:             %s\n", c.OutputPath)
	fmt.Fprintf(w, "  HTTP Address:       %s\n", c.HTTPAddr)
	fmt.Fprintf(w, "  Log Level:          %s\n", c.LogLevel)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "API Keys:")
	providers := make([]string, 0, len(c.APIKeys))
	for p := range c.APIKeys {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	if len(providers) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, p := range providers {
		fmt.Fprintf(w, "  %-10s %s\n", p+":", maskSecret(c.APIKeys[p]))
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// buildOptimizer combines the environment settings with an optional profile.
func buildOptimizer(client llm.LLM, profile *optimizer.Profile, opts ...optimizer.OptimizerOption) (*optimizer.Optimizer, error) {
	var counter llm.TokenCounter
	if profile != nil && profile.NeedsTokenCounter() {
		tc, err := llm.NewTiktokenCounter(cfg.Model, logger)
		if err != nil {
			return nil, fmt.Errorf("token counter: %w", err)
		}
		counter = tc
	}
	opts = append([]optimizer.OptimizerOption{optimizer.WithLogger(logger)}, opts...)
	return optimizer.NewOptimizerFromProfile(client, profile, optimizer.ConfigFromSettings(cfg), counter, opts...)
}

func loadProfile(path string) (*optimizer.Profile, error) {
	if path == "" {
		return nil, nil
	}
	return optimizer.LoadProfile(path)
}
