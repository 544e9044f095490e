// Package providers implements the request/response wire formats of the
// hosted text-generation APIs that promptopt scores prompts against.
package providers

import (
	"context"
	"errors"

	"github.com/teilomillet/promptopt/config"
	"github.com/teilomillet/promptopt/utils"
)

var (
	// ErrContentBlocked is returned when the provider refused to answer on policy grounds.
	ErrContentBlocked = errors.New("content blocked by provider policy")
	// ErrEmptyResponse is returned when a response carried no text.
	ErrEmptyResponse = errors.New("empty response from provider")
)

// Provider translates a prompt into a provider-specific HTTP request body and
// the provider's response body back into plain text.
type Provider interface {
	Name() string
	Endpoint() string
	Headers() map[string]string
	SetExtraHeaders(extraHeaders map[string]string)
	SetDefaultOptions(cfg *config.Config)
	SetOption(key string, value any)
	SetLogger(logger utils.Logger)

	PrepareRequest(prompt string, options map[string]any) ([]byte, error)
	ParseResponse(body []byte) (string, error)

	SupportsJSONSchema() bool
}

// Completer is implemented by providers that answer in-process instead of
// over HTTP. The LLM client calls Complete directly when it is available.
type Completer interface {
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)
}

// ProviderConstructor defines a function type for creating new provider instances.
type ProviderConstructor func(apiKey, model string, extraHeaders map[string]string) Provider

// mergeOptions layers per-call options over provider defaults.
func mergeOptions(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func copyHeaders(extra map[string]string) map[string]string {
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}
