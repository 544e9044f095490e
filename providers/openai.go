package providers

import (
	"encoding/json"
	"fmt"

	"github.com/teilomillet/promptopt/config"
	"github.com/teilomillet/promptopt/utils"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/chat/completions"
	ollamaEndpoint = "http://localhost:11434/v1/chat/completions"
)

// OpenAIProvider implements the Provider interface for the chat completions
// API and any server that speaks it.
type OpenAIProvider struct {
	name         string
	apiKey       string
	model        string
	endpoint     string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(apiKey, model string, extraHeaders map[string]string) Provider {
	return &OpenAIProvider{
		name:         "openai",
		apiKey:       apiKey,
		model:        model,
		endpoint:     openAIEndpoint,
		extraHeaders: copyHeaders(extraHeaders),
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
	}
}

// NewOllamaProvider talks to a local Ollama server through its
// OpenAI-compatible endpoint. No credential is sent.
func NewOllamaProvider(model string, extraHeaders map[string]string) Provider {
	return &OpenAIProvider{
		name:         "ollama",
		model:        model,
		endpoint:     ollamaEndpoint,
		extraHeaders: copyHeaders(extraHeaders),
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
	}
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

func (p *OpenAIProvider) Endpoint() string {
	return p.endpoint
}

func (p *OpenAIProvider) SupportsJSONSchema() bool {
	return p.name == "openai"
}

func (p *OpenAIProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}
	for key, value := range p.extraHeaders {
		headers[key] = value
	}
	return headers
}

func (p *OpenAIProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = copyHeaders(extraHeaders)
}

func (p *OpenAIProvider) SetLogger(logger utils.Logger) {
	p.logger = logger
}

func (p *OpenAIProvider) SetOption(key string, value any) {
	p.options[key] = value
	p.logger.Debug("Option set", "key", key, "value", value)
}

func (p *OpenAIProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption(KeyTemperature, cfg.Temperature)
	p.SetOption(KeyMaxTokens, cfg.MaxTokens)
	if cfg.Seed != nil {
		p.SetOption(KeySeed, *cfg.Seed)
	}
	if cfg.Endpoint != "" {
		p.endpoint = cfg.Endpoint
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PrepareRequest prepares the chat completions request body.
func (p *OpenAIProvider) PrepareRequest(prompt string, options map[string]any) ([]byte, error) {
	opts := mergeOptions(p.options, options)

	var messages []chatMessage
	if sys, ok := opts[KeySystemPrompt].(string); ok && sys != "" {
		messages = append(messages, chatMessage{Role: "system", Content: sys})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	request := map[string]any{
		"model":    p.model,
		"messages": messages,
	}
	if maxTokens, ok := opts[KeyMaxTokens].(int); ok && maxTokens > 0 {
		request["max_tokens"] = maxTokens
	}
	if temp, ok := opts[KeyTemperature].(float64); ok {
		request["temperature"] = temp
	}
	if seed, ok := opts[KeySeed].(int); ok {
		request["seed"] = seed
	}
	if schema, ok := opts[KeyResponseSchema]; ok && schema != nil {
		if p.SupportsJSONSchema() {
			request["response_format"] = map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "structured_response",
					"schema": schema,
				},
			}
		} else {
			request["response_format"] = map[string]any{"type": "json_object"}
		}
	}

	reqJSON, err := json.Marshal(request)
	if err != nil {
		p.logger.Error("Failed to marshal request", "error", err)
		return nil, err
	}
	return reqJSON, nil
}

// ParseResponse returns the content of the first choice.
func (p *OpenAIProvider) ParseResponse(body []byte) (string, error) {
	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse %s response: %w", p.name, err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("%s API error: %s", p.name, response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	choice := response.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", fmt.Errorf("%w: content_filter", ErrContentBlocked)
	}
	if choice.Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return choice.Message.Content, nil
}
