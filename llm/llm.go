// Package llm provides the text-generation capability the optimizer scores
// prompts with: a provider-agnostic client with rate limiting, error
// classification and collaborator-side retries.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/teilomillet/promptopt/config"
	"github.com/teilomillet/promptopt/metrics"
	"github.com/teilomillet/promptopt/providers"
	"github.com/teilomillet/promptopt/utils"
)

// LLM is the generation capability consumed by the optimizer. Every error
// returned by Generate is an *LLMError.
type LLM interface {
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
	Name() string
}

// LLMImpl is the HTTP implementation of LLM.
type LLMImpl struct {
	Provider   providers.Provider
	client     *http.Client
	logger     utils.Logger
	limiter    *rate.Limiter
	MaxRetries int
	RetryDelay time.Duration
}

// NewLLM resolves the configured provider from the registry and wraps it in
// a client. A nil registry uses every known provider.
func NewLLM(cfg *config.Config, logger utils.Logger, registry *providers.ProviderRegistry) (*LLMImpl, error) {
	if registry == nil {
		registry = providers.NewProviderRegistry()
	}
	provider, err := registry.Get(cfg.Provider, cfg.APIKey(), cfg.Model, cfg.ExtraHeaders)
	if err != nil {
		return nil, NewLLMError(ErrorTypeProvider, "failed to create provider", err)
	}
	return NewLLMWithProvider(cfg, provider, logger), nil
}

// NewLLMWithProvider wraps an already constructed provider.
func NewLLMWithProvider(cfg *config.Config, provider providers.Provider, logger utils.Logger) *LLMImpl {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	provider.SetDefaultOptions(cfg)
	provider.SetLogger(logger)

	l := &LLMImpl{
		Provider:   provider,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return l
}

func (l *LLMImpl) Name() string {
	return l.Provider.Name()
}

func (l *LLMImpl) SupportsJSONSchema() bool {
	return l.Provider.SupportsJSONSchema()
}

// SetDebugLevel updates the log level of the client's logger.
func (l *LLMImpl) SetDebugLevel(level utils.LogLevel) {
	l.logger.SetLevel(level)
}

func (l *LLMImpl) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", NewLLMError(ErrorTypeInvalidInput, "empty prompt", nil)
	}
	options := callOptions(newGenerateConfig(opts))

	var lastErr error
	for attempt := 0; attempt <= l.MaxRetries; attempt++ {
		l.logger.Debug("Generating text", "provider", l.Provider.Name(), "attempt", attempt+1)

		result, err := l.attemptGenerate(ctx, prompt, options)
		if err == nil {
			return result, nil
		}
		lastErr = err
		l.logger.Warn("Generation attempt failed", "provider", l.Provider.Name(), "error", err, "attempt", attempt+1)

		if attempt == l.MaxRetries || !IsRetryable(err) {
			break
		}
		l.logger.Debug("Retrying", "delay", l.RetryDelay)
		if err := l.wait(ctx); err != nil {
			return "", classify(err, ErrorTypeRequest, "retry wait interrupted")
		}
	}
	return "", lastErr
}

func callOptions(gc *GenerateConfig) map[string]any {
	options := make(map[string]any)
	if gc.MaxTokens > 0 {
		options[providers.KeyMaxTokens] = gc.MaxTokens
	}
	if gc.Temperature != nil {
		options[providers.KeyTemperature] = *gc.Temperature
	}
	if gc.SystemPrompt != "" {
		options[providers.KeySystemPrompt] = gc.SystemPrompt
	}
	if gc.ResponseSchema != nil {
		options[providers.KeyResponseSchema] = gc.ResponseSchema
	}
	return options
}

func (l *LLMImpl) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(l.RetryDelay):
		return nil
	}
}

func (l *LLMImpl) attemptGenerate(ctx context.Context, prompt string, options map[string]any) (result string, err error) {
	name := l.Provider.Name()
	start := time.Now()
	defer func() {
		metrics.GenerationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		status := "ok"
		if llmErr, ok := AsGenerationError(err); ok {
			status = llmErr.TypeString()
		}
		metrics.GenerationRequests.WithLabelValues(name, status).Inc()
	}()

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			// Wait refuses up front when the reservation would outlast the deadline.
			if _, ok := ctx.Deadline(); ok && !errors.Is(err, context.Canceled) {
				return "", NewLLMError(ErrorTypeTimeout, "rate limiter wait would exceed deadline", err)
			}
			return "", classify(err, ErrorTypeRateLimit, "rate limiter wait failed")
		}
	}

	if completer, ok := l.Provider.(providers.Completer); ok {
		text, err := completer.Complete(ctx, prompt, options)
		if err != nil {
			return "", classify(err, ErrorTypeProvider, "provider failed to complete")
		}
		return text, nil
	}

	return l.doHTTP(ctx, prompt, options)
}

func (l *LLMImpl) doHTTP(ctx context.Context, prompt string, options map[string]any) (string, error) {
	reqBody, err := l.Provider.PrepareRequest(prompt, options)
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to prepare request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.Provider.Endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to create request", err)
	}
	for k, v := range l.Provider.Headers() {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", classify(err, ErrorTypeRequest, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classify(err, ErrorTypeResponse, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		l.logger.Error("API error", "provider", l.Provider.Name(), "status", resp.StatusCode, "body", string(body))
		llmErr := NewLLMError(statusErrorType(resp.StatusCode), fmt.Sprintf("API error: status code %d", resp.StatusCode), nil)
		llmErr.StatusCode = resp.StatusCode
		return "", llmErr
	}

	result, err := l.Provider.ParseResponse(body)
	if err != nil {
		return "", classify(err, ErrorTypeResponse, "failed to parse response")
	}

	l.logger.Debug("Text generated successfully", "provider", l.Provider.Name(), "chars", len(result))
	return result, nil
}

func statusErrorType(code int) ErrorType {
	switch code {
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrorTypeAuthentication
	default:
		return ErrorTypeAPI
	}
}

// classify wraps err, promoting deadlines to timeouts and policy refusals to
// content policy errors. Errors that already are *LLMError pass through.
func classify(err error, fallback ErrorType, message string) *LLMError {
	if llmErr, ok := AsGenerationError(err); ok {
		return llmErr
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewLLMError(ErrorTypeTimeout, message, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return NewLLMError(ErrorTypeTimeout, message, err)
	case errors.Is(err, context.Canceled):
		return NewLLMError(ErrorTypeUnknown, message, err)
	case errors.Is(err, providers.ErrContentBlocked):
		return NewLLMError(ErrorTypeContentPolicy, message, err)
	default:
		return NewLLMError(fallback, message, err)
	}
}
