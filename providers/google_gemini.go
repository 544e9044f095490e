package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teilomillet/promptopt/config"
	"github.com/teilomillet/promptopt/utils"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider implements the Provider interface for Google's Gemini API
// (Generative Language API, generateContent).
type GeminiProvider struct {
	apiKey       string
	model        string
	baseURL      string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
}

// NewGeminiProvider creates a new Google Gemini API provider instance. The
// model may be given with or without the "models/" prefix.
func NewGeminiProvider(apiKey, model string, extraHeaders map[string]string) Provider {
	return &GeminiProvider{
		apiKey:       apiKey,
		model:        model,
		baseURL:      geminiBaseURL,
		extraHeaders: copyHeaders(extraHeaders),
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Endpoint returns e.g. ".../v1beta/models/gemini-1.5-flash:generateContent".
func (p *GeminiProvider) Endpoint() string {
	modelName := p.model
	if !strings.HasPrefix(modelName, "models/") {
		modelName = "models/" + modelName
	}
	return fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(p.baseURL, "/"), modelName)
}

func (p *GeminiProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type":   "application/json",
		"x-goog-api-key": p.apiKey,
	}
	for k, v := range p.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (p *GeminiProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = copyHeaders(extraHeaders)
}

func (p *GeminiProvider) SetLogger(logger utils.Logger) {
	p.logger = logger
}

func (p *GeminiProvider) SetOption(key string, value any) {
	p.options[key] = value
}

// SetDefaultOptions applies config defaults. A configured endpoint replaces
// the API base URL, which lets tests and proxies stand in for Google.
func (p *GeminiProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption(KeyTemperature, cfg.Temperature)
	p.SetOption(KeyMaxTokens, cfg.MaxTokens)
	if cfg.Seed != nil {
		p.SetOption(KeySeed, *cfg.Seed)
	}
	if cfg.Endpoint != "" {
		p.baseURL = cfg.Endpoint
	}
}

func (p *GeminiProvider) SupportsJSONSchema() bool {
	return true
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// PrepareRequest builds the generateContent body: one user turn, optional
// system instruction, and generationConfig from the merged options.
func (p *GeminiProvider) PrepareRequest(prompt string, options map[string]any) ([]byte, error) {
	opts := mergeOptions(p.options, options)

	requestBody := map[string]any{
		"contents": []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
	}

	if sys, ok := opts[KeySystemPrompt].(string); ok && sys != "" {
		requestBody["systemInstruction"] = geminiContent{Parts: []geminiPart{{Text: sys}}}
	}

	genConfig := make(map[string]any)
	if maxTokens, ok := opts[KeyMaxTokens].(int); ok && maxTokens > 0 {
		genConfig["maxOutputTokens"] = maxTokens
	}
	if temp, ok := opts[KeyTemperature].(float64); ok {
		genConfig["temperature"] = temp
	}
	if seed, ok := opts[KeySeed].(int); ok {
		genConfig["seed"] = seed
	}
	if schema, ok := opts[KeyResponseSchema]; ok && schema != nil {
		genConfig["responseMimeType"] = "application/json"
		genConfig["responseSchema"] = schema
	}
	if len(genConfig) > 0 {
		requestBody["generationConfig"] = genConfig
	}

	body, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}
	p.logger.Debug("gemini request prepared", "bytes", len(body))
	return body, nil
}

// ParseResponse extracts the text of the first candidate.
func (p *GeminiProvider) ParseResponse(body []byte) (string, error) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text *string `json:"text,omitempty"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason,omitempty"`
		} `json:"candidates"`
		PromptFeedback *struct {
			BlockReason string `json:"blockReason,omitempty"`
		} `json:"promptFeedback,omitempty"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != nil {
			text.WriteString(*part.Text)
		}
	}

	if text.Len() == 0 {
		if candidate.FinishReason == "SAFETY" || candidate.FinishReason == "PROHIBITED_CONTENT" {
			return "", fmt.Errorf("%w: finish reason %s", ErrContentBlocked, candidate.FinishReason)
		}
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}
