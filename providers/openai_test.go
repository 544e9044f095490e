package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/promptopt/config"
)

func TestOpenAIPrepareRequest(t *testing.T) {
	provider := NewOpenAIProvider("sk-test", "gpt-4o-mini", map[string]string{"X-Trace": "1"})
	provider.SetDefaultOptions(&config.Config{Temperature: 0.7, MaxTokens: 500})

	body, err := provider.PrepareRequest("Rate this prompt", map[string]any{
		KeySystemPrompt:   "You are a reviewer.",
		KeyMaxTokens:      600,
		KeyResponseSchema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "gpt-4o-mini", req["model"])
	assert.Equal(t, float64(600), req["max_tokens"])
	assert.Equal(t, 0.7, req["temperature"])

	messages := req["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "Rate this prompt", messages[1].(map[string]any)["content"])

	format := req["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])

	headers := provider.Headers()
	assert.Equal(t, "Bearer sk-test", headers["Authorization"])
	assert.Equal(t, "1", headers["X-Trace"])
}

func TestOpenAIParseResponse(t *testing.T) {
	provider := NewOpenAIProvider("sk-test", "gpt-4o-mini", nil)

	testCases := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{
			name: "content",
			body: `{"choices":[{"message":{"content":"Paris"},"finish_reason":"stop"}]}`,
			want: "Paris",
		},
		{
			name:    "no choices",
			body:    `{"choices":[]}`,
			wantErr: ErrEmptyResponse,
		},
		{
			name:    "filtered",
			body:    `{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`,
			wantErr: ErrContentBlocked,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := provider.ParseResponse([]byte(tc.body))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := provider.ParseResponse([]byte(`{"error":{"message":"bad key"}}`))
	assert.ErrorContains(t, err, "bad key")
}

func TestOllamaProvider(t *testing.T) {
	provider := NewOllamaProvider("llama3", nil)
	assert.Equal(t, "ollama", provider.Name())
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", provider.Endpoint())
	assert.NotContains(t, provider.Headers(), "Authorization")
	assert.False(t, provider.SupportsJSONSchema())

	provider.SetDefaultOptions(&config.Config{Endpoint: "http://gpu-box:11434/v1/chat/completions"})
	assert.Equal(t, "http://gpu-box:11434/v1/chat/completions", provider.Endpoint())

	body, err := provider.PrepareRequest("hi", map[string]any{KeyResponseSchema: map[string]any{}})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"json_object"`)
}
