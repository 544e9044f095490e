package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/promptopt/config"
)

func TestGeminiEndpoint(t *testing.T) {
	provider := NewGeminiProvider("key", "gemini-1.5-flash", nil)
	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent",
		provider.Endpoint())

	provider = NewGeminiProvider("key", "models/gemini-pro", nil)
	provider.SetDefaultOptions(&config.Config{Endpoint: "http://127.0.0.1:9999/"})
	assert.Equal(t, "http://127.0.0.1:9999/models/gemini-pro:generateContent", provider.Endpoint())

	assert.Equal(t, "key", provider.Headers()["x-goog-api-key"])
}

func TestGeminiPrepareRequest(t *testing.T) {
	provider := NewGeminiProvider("key", "gemini-1.5-flash", nil)
	seed := 7
	provider.SetDefaultOptions(&config.Config{Temperature: 0.2, MaxTokens: 500, Seed: &seed})

	body, err := provider.PrepareRequest("Explain gravity", map[string]any{
		KeyResponseSchema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)

	var req struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig map[string]any `json:"generationConfig"`
	}
	require.NoError(t, json.Unmarshal(body, &req))
	require.Len(t, req.Contents, 1)
	assert.Equal(t, "user", req.Contents[0].Role)
	assert.Equal(t, "Explain gravity", req.Contents[0].Parts[0].Text)
	assert.Equal(t, float64(500), req.GenerationConfig["maxOutputTokens"])
	assert.Equal(t, 0.2, req.GenerationConfig["temperature"])
	assert.Equal(t, float64(7), req.GenerationConfig["seed"])
	assert.Equal(t, "application/json", req.GenerationConfig["responseMimeType"])
}

func TestGeminiParseResponse(t *testing.T) {
	provider := NewGeminiProvider("key", "gemini-1.5-flash", nil)

	got, err := provider.ParseResponse([]byte(
		`{"candidates":[{"content":{"parts":[{"text":"Hello, "},{"text":"world"}]},"finishReason":"STOP"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", got)

	_, err = provider.ParseResponse([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	assert.ErrorIs(t, err, ErrContentBlocked)

	_, err = provider.ParseResponse([]byte(`{"candidates":[{"content":{"parts":[]},"finishReason":"SAFETY"}]}`))
	assert.ErrorIs(t, err, ErrContentBlocked)

	_, err = provider.ParseResponse([]byte(`{"candidates":[]}`))
	assert.ErrorIs(t, err, ErrEmptyResponse)

	_, err = provider.ParseResponse([]byte(`not json`))
	assert.Error(t, err)
}
