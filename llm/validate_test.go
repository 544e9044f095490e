package llm

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scored struct {
	Name  string  `json:"name" validate:"required"`
	Score float64 `json:"score" validate:"min=0,max=10"`
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(&scored{Name: "clarity", Score: 7}))
	assert.Error(t, Validate(&scored{Score: 7}))
	assert.Error(t, Validate(&scored{Name: "clarity", Score: 11}))
}

func TestRegisterCustomValidation(t *testing.T) {
	err := RegisterCustomValidation("metricname", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), " \t")
	})
	require.NoError(t, err)

	type metric struct {
		Name string `validate:"metricname"`
	}
	assert.NoError(t, Validate(&metric{Name: "style_match"}))
	assert.Error(t, Validate(&metric{Name: "style match"}))
}

func TestSchemaFor(t *testing.T) {
	schema, err := SchemaFor(&scored{})
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "score")
}
