package llm

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of an error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeProvider
	ErrorTypeRequest
	ErrorTypeResponse
	ErrorTypeAPI
	ErrorTypeRateLimit
	ErrorTypeAuthentication
	ErrorTypeInvalidInput
	ErrorTypeTimeout
	ErrorTypeContentPolicy
)

// LLMError is the error returned by every failed generation call. It is the
// GenerationError of the scoring loop: callers classify it by Type.
type LLMError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.TypeString(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.TypeString(), e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func (e *LLMError) TypeString() string {
	switch e.Type {
	case ErrorTypeProvider:
		return "ProviderError"
	case ErrorTypeRequest:
		return "RequestError"
	case ErrorTypeResponse:
		return "ResponseError"
	case ErrorTypeAPI:
		return "APIError"
	case ErrorTypeRateLimit:
		return "RateLimitError"
	case ErrorTypeAuthentication:
		return "AuthenticationError"
	case ErrorTypeInvalidInput:
		return "InvalidInputError"
	case ErrorTypeTimeout:
		return "TimeoutError"
	case ErrorTypeContentPolicy:
		return "ContentPolicyError"
	default:
		return "UnknownError"
	}
}

// NewLLMError creates a new LLMError
func NewLLMError(errType ErrorType, message string, err error) *LLMError {
	return &LLMError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// AsGenerationError returns the *LLMError in err's chain, if any.
func AsGenerationError(err error) (*LLMError, bool) {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr, true
	}
	return nil, false
}

// IsRetryable reports whether another attempt could succeed. Rate limits,
// timeouts, transport failures and 5xx responses qualify.
func IsRetryable(err error) bool {
	llmErr, ok := AsGenerationError(err)
	if !ok {
		return false
	}
	switch llmErr.Type {
	case ErrorTypeRateLimit, ErrorTypeTimeout, ErrorTypeRequest:
		return true
	case ErrorTypeAPI:
		return llmErr.StatusCode >= 500
	default:
		return false
	}
}
