package providers

// Option keys understood by every provider.
const (
	KeySystemPrompt   = "system_prompt"
	KeyMaxTokens      = "max_tokens"
	KeyTemperature    = "temperature"
	KeySeed           = "seed"
	KeyResponseSchema = "response_schema"
)
