// Package models defines the data model for prompt templates: the YAML
// frontmatter metadata, parameter declarations, and the template itself.
package models

import "fmt"

// ParamType is the declared type of a template parameter.
type ParamType string

const (
	ParamString      ParamType = "string"
	ParamNumber      ParamType = "number"
	ParamBoolean     ParamType = "boolean"
	ParamStringArray ParamType = "array"
)

// Valid reports whether t is one of the declared parameter types.
func (t ParamType) Valid() bool {
	switch t {
	case ParamString, ParamNumber, ParamBoolean, ParamStringArray:
		return true
	}
	return false
}

// ParameterDefinition declares a single template parameter. Name must be
// unique within a template's parameter list. Default, when present, must
// hold a value of the declared Type, and a required parameter must not
// carry a default at all.
type ParameterDefinition struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description"`
	Type        ParamType `yaml:"type" json:"type"`
	Required    bool      `yaml:"required" json:"required"`
	Default     any       `yaml:"default,omitempty" json:"default,omitempty"`
}

// PromptMetadata is the structured metadata carried in a template file's
// YAML frontmatter.
type PromptMetadata struct {
	Title        string                `yaml:"title" json:"title"`
	Description  string                `yaml:"description" json:"description"`
	Categories   []string              `yaml:"categories" json:"categories"`
	SecondaryTag string                `yaml:"secondary_tag,omitempty" json:"secondary_tag,omitempty"`
	Author       string                `yaml:"author" json:"author"`
	Verified     bool                  `yaml:"verified" json:"verified"`
	Votes        int                   `yaml:"votes" json:"votes"`
	Parameters   []ParameterDefinition `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// PromptTemplate is a fully parsed and validated prompt template: the
// logical name (derived from the filename), its metadata, and the template
// body after the frontmatter block. Templates are value types; the store's
// cache hands out copies via Clone so callers cannot mutate shared state.
type PromptTemplate struct {
	Name     string         `json:"name"`
	Metadata PromptMetadata `json:"metadata"`
	Content  string         `json:"content"`
}

// Clone returns a deep copy of the template.
func (t PromptTemplate) Clone() PromptTemplate {
	out := t
	out.Metadata.Categories = append([]string(nil), t.Metadata.Categories...)
	if t.Metadata.Parameters != nil {
		out.Metadata.Parameters = make([]ParameterDefinition, len(t.Metadata.Parameters))
		for i, p := range t.Metadata.Parameters {
			p.Default = cloneValue(p.Default)
			out.Metadata.Parameters[i] = p
		}
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []any:
		return append([]any(nil), val...)
	}
	return v
}

// TypeOfValue reports the ParamType of a dynamically typed parameter value.
// The second return is false when the value maps to none of the declared
// types (for example a map, or an array with non-string elements).
func TypeOfValue(v any) (ParamType, bool) {
	switch val := v.(type) {
	case string:
		return ParamString, true
	case bool:
		return ParamBoolean, true
	case int, int64, float64:
		return ParamNumber, true
	case []string:
		return ParamStringArray, true
	case []any:
		for _, elem := range val {
			if _, ok := elem.(string); !ok {
				return "", false
			}
		}
		return ParamStringArray, true
	}
	return "", false
}

// TypeName returns a human-readable type name for error messages.
func TypeName(v any) string {
	if t, ok := TypeOfValue(v); ok {
		return string(t)
	}
	return fmt.Sprintf("%T", v)
}

// ValueSize returns the byte size a parameter value is accounted at when
// the renderer enforces its size limits.
func ValueSize(v any) int {
	switch val := v.(type) {
	case string:
		return len(val)
	case bool:
		return 1
	case int, int64, float64:
		return 8
	case []string:
		total := 0
		for _, s := range val {
			total += len(s)
		}
		return total
	case []any:
		total := 0
		for _, elem := range val {
			if s, ok := elem.(string); ok {
				total += len(s)
			} else {
				total += len(fmt.Sprintf("%v", elem))
			}
		}
		return total
	}
	return len(fmt.Sprintf("%v", v))
}
