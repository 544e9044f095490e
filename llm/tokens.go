package llm

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teilomillet/promptopt/utils"
)

// TokenCounter measures text length in model tokens.
type TokenCounter interface {
	CountTokens(text string) int
}

// TiktokenCounter counts tokens with the BPE encoding of a model.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the encoding for model, falling back to the
// gpt-4o encoding for models tiktoken does not know (Gemini included).
func NewTiktokenCounter(model string, logger utils.Logger) (*TiktokenCounter, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Debug("Failed to get encoding for model, defaulting to gpt-4o", "model", model, "error", err)
		encoding, err = tiktoken.EncodingForModel("gpt-4o")
		if err != nil {
			return nil, fmt.Errorf("failed to get default encoding: %w", err)
		}
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

func (c *TiktokenCounter) CountTokens(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}
