// Package promptopt is the high-level entry point: build a configured model
// client and optimize a prompt in one call. This file re-exports the
// configuration surface of the config package.
package promptopt

import (
	"github.com/teilomillet/promptopt/config"
	"github.com/teilomillet/promptopt/utils"
)

// Re-export core configuration types for easier access
type (
	// Config is the complete client and optimizer configuration. See
	// config.Config for field documentation.
	Config = config.Config

	// ConfigOption modifies a Config.
	//
	// Example usage:
	//   client, err := NewLLM(SetProvider("openai"), SetModel("gpt-4o-mini"))
	ConfigOption = config.ConfigOption

	LogLevel = utils.LogLevel
)

const (
	LogLevelOff   = utils.LogLevelOff
	LogLevelError = utils.LogLevelError
	LogLevelWarn  = utils.LogLevelWarn
	LogLevelInfo  = utils.LogLevelInfo
	LogLevelDebug = utils.LogLevelDebug
)

// Re-export core configuration functions
var (
	// LoadConfig reads the environment, including every *_API_KEY variable.
	LoadConfig = config.LoadConfig
	NewConfig  = config.NewConfig

	SetProvider          = config.SetProvider
	SetModel             = config.SetModel
	SetEndpoint          = config.SetEndpoint
	SetAPIKey            = config.SetAPIKey
	SetTemperature       = config.SetTemperature
	SetMaxTokens         = config.SetMaxTokens
	SetTimeout           = config.SetTimeout
	SetGenerationTimeout = config.SetGenerationTimeout
	SetMaxRetries        = config.SetMaxRetries
	SetRetryDelay        = config.SetRetryDelay
	SetRateLimit         = config.SetRateLimit
	SetConcurrency       = config.SetConcurrency
	SetBrevityTarget     = config.SetBrevityTarget
	SetLogLevel          = config.SetLogLevel
	SetLogger            = config.SetLogger
	SetSeed              = config.SetSeed
	SetExtraHeaders      = config.SetExtraHeaders
)
