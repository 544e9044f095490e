package llm

// GenerateOption is a function type for configuring generation behavior.
type GenerateOption func(*GenerateConfig)

// GenerateConfig holds per-call overrides. Zero values fall back to the
// provider defaults set from config.
type GenerateConfig struct {
	MaxTokens      int
	Temperature    *float64
	SystemPrompt   string
	ResponseSchema any
}

// WithMaxTokens caps the output length of a single call.
func WithMaxTokens(n int) GenerateOption {
	return func(cfg *GenerateConfig) {
		cfg.MaxTokens = n
	}
}

func WithTemperature(t float64) GenerateOption {
	return func(cfg *GenerateConfig) {
		cfg.Temperature = &t
	}
}

func WithSystemPrompt(prompt string) GenerateOption {
	return func(cfg *GenerateConfig) {
		cfg.SystemPrompt = prompt
	}
}

// WithResponseSchema requests output conforming to a JSON schema. Providers
// that support it receive the schema natively; others are asked for JSON.
func WithResponseSchema(schema any) GenerateOption {
	return func(cfg *GenerateConfig) {
		cfg.ResponseSchema = schema
	}
}

func newGenerateConfig(opts []GenerateOption) *GenerateConfig {
	cfg := &GenerateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
