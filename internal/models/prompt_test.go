package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOfValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  ParamType
		ok    bool
	}{
		{"string", "hello", ParamString, true},
		{"bool", true, ParamBoolean, true},
		{"int", 42, ParamNumber, true},
		{"int64", int64(42), ParamNumber, true},
		{"float64", 4.2, ParamNumber, true},
		{"string slice", []string{"a", "b"}, ParamStringArray, true},
		{"any slice of strings", []any{"a", "b"}, ParamStringArray, true},
		{"empty any slice", []any{}, ParamStringArray, true},
		{"mixed any slice", []any{"a", 1}, ParamType(""), false},
		{"map", map[string]any{}, ParamType(""), false},
		{"nil", nil, ParamType(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TypeOfValue(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueSize(t *testing.T) {
	assert.Equal(t, 5, ValueSize("hello"))
	assert.Equal(t, 1, ValueSize(true))
	assert.Equal(t, 8, ValueSize(3.14))
	assert.Equal(t, 8, ValueSize(7))
	assert.Equal(t, 6, ValueSize([]string{"abc", "def"}))
	assert.Equal(t, 6, ValueSize([]any{"abc", "def"}))
}

func TestCloneIsIndependent(t *testing.T) {
	orig := PromptTemplate{
		Name: "demo",
		Metadata: PromptMetadata{
			Title:      "T",
			Categories: []string{"a", "b"},
			Parameters: []ParameterDefinition{
				{Name: "xs", Type: ParamStringArray, Default: []any{"one"}},
			},
		},
		Content: "body",
	}

	clone := orig.Clone()
	clone.Metadata.Categories[0] = "mutated"
	clone.Metadata.Parameters[0].Default.([]any)[0] = "mutated"

	assert.Equal(t, "a", orig.Metadata.Categories[0])
	assert.Equal(t, "one", orig.Metadata.Parameters[0].Default.([]any)[0])
}

func TestParamTypeValid(t *testing.T) {
	assert.True(t, ParamString.Valid())
	assert.True(t, ParamNumber.Valid())
	assert.True(t, ParamBoolean.Valid())
	assert.True(t, ParamStringArray.Valid())
	assert.False(t, ParamType("object").Valid())
	assert.False(t, ParamType("").Valid())
}
