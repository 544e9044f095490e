// Package config loads and validates promptopt settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/teilomillet/promptopt/utils"
)

// Providers that can run without a credential.
var keylessProviders = map[string]bool{
	"mock":   true,
	"ollama": true,
}

type Config struct {
	Provider    string  `env:"LLM_PROVIDER" envDefault:"gemini" validate:"required"`
	Model       string  `env:"LLM_MODEL" envDefault:"gemini-1.5-flash" validate:"required"`
	Endpoint    string  `env:"LLM_ENDPOINT" validate:"omitempty,url"`
	Temperature float64 `env:"LLM_TEMPERATURE" envDefault:"0.7" validate:"min=0,max=2"`
	MaxTokens   int     `env:"LLM_MAX_TOKENS" envDefault:"500" validate:"min=1"`

	AnalysisMaxTokens    int `env:"OPTIMIZER_ANALYSIS_MAX_TOKENS" envDefault:"600" validate:"min=1"`
	ImprovementMaxTokens int `env:"OPTIMIZER_IMPROVEMENT_MAX_TOKENS" envDefault:"800" validate:"min=1"`

	Timeout           time.Duration `env:"LLM_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	GenerationTimeout time.Duration `env:"OPTIMIZER_GENERATION_TIMEOUT" envDefault:"60s" validate:"gt=0"`
	MaxRetries        int           `env:"LLM_MAX_RETRIES" envDefault:"0" validate:"min=0,max=10"`
	RetryDelay        time.Duration `env:"LLM_RETRY_DELAY" envDefault:"2s"`
	RateLimit         float64       `env:"LLM_RATE_LIMIT" envDefault:"0" validate:"min=0"`
	RateBurst         int           `env:"LLM_RATE_BURST" envDefault:"1" validate:"min=1"`

	Concurrency   int    `env:"OPTIMIZER_CONCURRENCY" envDefault:"4" validate:"min=1,max=64"`
	BrevityTarget int    `env:"OPTIMIZER_BREVITY_TARGET" envDefault:"150" validate:"min=1"`
	OutputPath    string `env:"OPTIMIZER_OUTPUT" envDefault:"prompt_optimization_results.json"`
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`

	LogLevel utils.LogLevel `env:"LLM_LOG_LEVEL" envDefault:"WARN"`
	Seed     *int           `env:"LLM_SEED"`

	APIKeys      map[string]string
	ExtraHeaders map[string]string
	Logger       utils.Logger
}

// ConfigurationError reports a setting that prevents startup, typically a
// missing credential for the selected provider.
type ConfigurationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		APIKeys:      make(map[string]string),
		ExtraHeaders: make(map[string]string),
	}
	if err := env.Parse(cfg); err != nil {
		return nil, &ConfigurationError{Field: "env", Message: "failed to parse environment", Err: err}
	}

	loadAPIKeys(cfg)
	return cfg, nil
}

// loadAPIKeys collects every FOO_API_KEY variable under the lowercase provider name.
func loadAPIKeys(cfg *Config) {
	for _, envVar := range os.Environ() {
		key, value, found := strings.Cut(envVar, "=")
		if found && strings.HasSuffix(strings.ToUpper(key), "_API_KEY") && value != "" {
			provider := strings.TrimSuffix(strings.ToUpper(key), "_API_KEY")
			cfg.APIKeys[strings.ToLower(provider)] = value
		}
	}

	// gemini keys are also published under the google name and vice versa
	if k, ok := cfg.APIKeys["google"]; ok && cfg.APIKeys["gemini"] == "" {
		cfg.APIKeys["gemini"] = k
	}
	if k, ok := cfg.APIKeys["gemini"]; ok && cfg.APIKeys["google"] == "" {
		cfg.APIKeys["google"] = k
	}
}

// APIKey returns the credential for the active provider.
func (c *Config) APIKey() string {
	return c.APIKeys[strings.ToLower(c.Provider)]
}

// Validate checks field ranges and the presence of a credential.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &ConfigurationError{Field: "config", Message: "invalid settings", Err: err}
	}
	if !keylessProviders[strings.ToLower(c.Provider)] && c.APIKey() == "" {
		return &ConfigurationError{
			Field:   strings.ToUpper(c.Provider) + "_API_KEY",
			Message: fmt.Sprintf("no API key set for provider %q", c.Provider),
		}
	}
	return nil
}

type ConfigOption func(*Config)

func NewConfig() *Config {
	return &Config{
		Provider:             "gemini",
		Model:                "gemini-1.5-flash",
		Temperature:          0.7,
		MaxTokens:            500,
		AnalysisMaxTokens:    600,
		ImprovementMaxTokens: 800,
		Timeout:              30 * time.Second,
		GenerationTimeout:    60 * time.Second,
		RetryDelay:           2 * time.Second,
		RateBurst:            1,
		Concurrency:          4,
		BrevityTarget:        150,
		OutputPath:           "prompt_optimization_results.json",
		HTTPAddr:             ":8080",
		LogLevel:             utils.LogLevelWarn,
		APIKeys:              make(map[string]string),
		ExtraHeaders:         make(map[string]string),
	}
}

func SetProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

func SetModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

func SetEndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

func SetTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

func SetMaxTokens(maxTokens int) ConfigOption {
	return func(c *Config) {
		if maxTokens < 1 {
			maxTokens = 1
		}
		c.MaxTokens = maxTokens
	}
}

func SetTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func SetGenerationTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.GenerationTimeout = timeout
	}
}

// SetAPIKey stores the key for the provider selected at the time it is applied.
func SetAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		if c.APIKeys == nil {
			c.APIKeys = make(map[string]string)
		}
		c.APIKeys[strings.ToLower(c.Provider)] = apiKey
	}
}

func SetMaxRetries(maxRetries int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
	}
}

func SetRetryDelay(retryDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = retryDelay
	}
}

func SetRateLimit(perSecond float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RateLimit = perSecond
		c.RateBurst = burst
	}
}

func SetConcurrency(n int) ConfigOption {
	return func(c *Config) {
		c.Concurrency = n
	}
}

func SetBrevityTarget(n int) ConfigOption {
	return func(c *Config) {
		c.BrevityTarget = n
	}
}

func SetLogLevel(level utils.LogLevel) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

func SetLogger(logger utils.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

func SetSeed(seed int) ConfigOption {
	return func(c *Config) {
		c.Seed = &seed
	}
}

func SetExtraHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		if c.ExtraHeaders == nil {
			c.ExtraHeaders = make(map[string]string)
		}
		for k, v := range headers {
			c.ExtraHeaders[k] = v
		}
	}
}

func ApplyOptions(cfg *Config, options ...ConfigOption) {
	for _, option := range options {
		option(cfg)
	}
}
