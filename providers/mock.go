package providers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/teilomillet/promptopt/config"
	"github.com/teilomillet/promptopt/utils"
)

// ErrMockExhausted is returned once a non-looping response queue runs dry.
var ErrMockExhausted = errors.New("mock responses exhausted")

// Responder computes a mock answer from the prompt it receives.
type Responder func(prompt string) (string, error)

// MockProvider implements the Provider interface for testing purposes. It
// answers in-process through Complete and is safe for concurrent use.
type MockProvider struct {
	model        string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger

	mu            sync.Mutex
	responseText  string
	mockErr       error
	responses     []string
	currentIndex  int
	loopResponses bool
	responder     Responder
	prompts       []string
}

// NewMockProvider creates a new mock provider instance for testing.
func NewMockProvider(model string, extraHeaders map[string]string) Provider {
	return &MockProvider{
		model:        model,
		extraHeaders: copyHeaders(extraHeaders),
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
		responseText: "This is a mock response",
	}
}

// SetMockResponse configures the default response text
func (p *MockProvider) SetMockResponse(response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responseText = response
}

// SetMockError makes every call fail with err. A nil err clears it.
func (p *MockProvider) SetMockError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mockErr = err
}

// SetResponses configures a list of responses to be returned in sequence
func (p *MockProvider) SetResponses(responses []string, loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append([]string(nil), responses...)
	p.currentIndex = 0
	p.loopResponses = loop
}

// SetResponder installs a function that answers every prompt. It takes
// precedence over the response queue.
func (p *MockProvider) SetResponder(fn Responder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responder = fn
}

// Prompts returns every prompt received so far, in arrival order.
func (p *MockProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

func (p *MockProvider) SetLogger(logger utils.Logger)             { p.logger = logger }
func (p *MockProvider) Name() string                              { return "mock" }
func (p *MockProvider) Endpoint() string                          { return "mock://" + p.model }
func (p *MockProvider) SetOption(key string, value any)           { p.options[key] = value }
func (p *MockProvider) SupportsJSONSchema() bool                  { return true }
func (p *MockProvider) SetExtraHeaders(headers map[string]string) { p.extraHeaders = copyHeaders(headers) }

func (p *MockProvider) SetDefaultOptions(cfg *config.Config) {
	p.SetOption(KeyTemperature, cfg.Temperature)
	p.SetOption(KeyMaxTokens, cfg.MaxTokens)
}

func (p *MockProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	for k, v := range p.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (p *MockProvider) PrepareRequest(prompt string, options map[string]any) ([]byte, error) {
	requestBody := mergeOptions(p.options, options)
	requestBody["model"] = p.model
	requestBody["prompt"] = prompt
	return json.Marshal(requestBody)
}

// ParseResponse accepts a body produced by PrepareRequest and answers it.
func (p *MockProvider) ParseResponse(body []byte) (string, error) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	_ = json.Unmarshal(body, &req)
	return p.answer(req.Prompt)
}

// Complete answers the prompt without any network round trip.
func (p *MockProvider) Complete(ctx context.Context, prompt string, _ map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.answer(prompt)
}

func (p *MockProvider) answer(prompt string) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	if p.mockErr != nil {
		err := p.mockErr
		p.mu.Unlock()
		return "", err
	}
	responder := p.responder
	if responder != nil {
		p.mu.Unlock()
		return responder(prompt)
	}
	defer p.mu.Unlock()
	return p.nextResponse()
}

// nextResponse returns the next response from the queue. Caller holds mu.
func (p *MockProvider) nextResponse() (string, error) {
	if len(p.responses) == 0 {
		return p.responseText, nil
	}

	if p.currentIndex >= len(p.responses) {
		if !p.loopResponses {
			return "", ErrMockExhausted
		}
		p.currentIndex = 0
	}

	response := p.responses[p.currentIndex]
	p.currentIndex++
	return response, nil
}
