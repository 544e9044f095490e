package llm

import (
	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance used across the package.
var validate = validator.New()

// Validate checks a struct against its `validate` tags.
//
// Example:
//
//	type Analysis struct {
//	    ClarityScore float64 `json:"clarity_score" validate:"min=0,max=10"`
//	}
//
//	if err := llm.Validate(&a); err != nil {
//	    // reject or substitute a default
//	}
func Validate(s any) error {
	return validate.Struct(s)
}

// RegisterCustomValidation registers a custom validation function with the validator.
// This allows adding domain-specific validation rules beyond the standard ones.
func RegisterCustomValidation(tag string, fn validator.Func) error {
	return validate.RegisterValidation(tag, fn)
}
