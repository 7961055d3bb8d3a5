// Package frontmatter parses prompt template files.
//
// A template file starts with a YAML metadata block delimited by lines
// consisting solely of "---"; everything after the closing delimiter is the
// template body. The format is user-facing: people author these files by
// hand, so parse and validation errors name the offending field precisely.
package frontmatter

import (
	"bufio"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/promptkeep/promptkeep/internal/errors"
	"github.com/promptkeep/promptkeep/internal/models"
)

// Delimiter opens and closes the metadata block.
const Delimiter = "---"

// maxLineBytes bounds a single line fed to the scanner. Bodies can be
// large; lines beyond this are rejected as malformed.
const maxLineBytes = 4 * 1024 * 1024

// Parse splits raw into a metadata block and a body, deserializes and
// validates the metadata, and returns the assembled template. It is a pure
// function: no filesystem access, no shared state.
func Parse(name, raw string) (models.PromptTemplate, error) {
	var tpl models.PromptTemplate

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !scanner.Scan() || scanner.Text() != Delimiter {
		return tpl, apperrors.New(apperrors.ErrCodeMissingMetadata,
			"no metadata block found; template files must begin with a '---' line")
	}

	var metaLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == Delimiter {
			closed = true
			break
		}
		metaLines = append(metaLines, line)
	}
	if !closed {
		return tpl, apperrors.New(apperrors.ErrCodeMissingMetadata,
			"metadata block is not closed; add a '---' line after the YAML frontmatter")
	}

	var contentLines []string
	for scanner.Scan() {
		contentLines = append(contentLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return tpl, apperrors.Wrap(err, apperrors.ErrCodeMalformedMetadata,
			"failed to scan template file")
	}

	meta, err := decodeMetadata(strings.Join(metaLines, "\n"))
	if err != nil {
		return tpl, err
	}
	if err := validateMetadata(&meta); err != nil {
		return tpl, err
	}

	content := strings.Join(contentLines, "\n")
	content = strings.TrimLeft(content, " \t\n")

	tpl = models.PromptTemplate{Name: name, Metadata: meta, Content: content}
	return tpl, nil
}

func decodeMetadata(block string) (models.PromptMetadata, error) {
	var meta models.PromptMetadata

	dec := yaml.NewDecoder(strings.NewReader(block))
	dec.KnownFields(true)
	if err := dec.Decode(&meta); err != nil {
		if err == io.EOF {
			return meta, apperrors.New(apperrors.ErrCodeMalformedMetadata,
				"metadata block is empty; declare at least title, description, categories and author")
		}
		return meta, apperrors.Wrap(err, apperrors.ErrCodeMalformedMetadata,
			"invalid YAML frontmatter")
	}

	// An omitted type means string, matching how most templates are written.
	for i := range meta.Parameters {
		if meta.Parameters[i].Type == "" {
			meta.Parameters[i].Type = models.ParamString
		}
	}
	return meta, nil
}

func validateMetadata(meta *models.PromptMetadata) error {
	if meta.Title == "" {
		return apperrors.New(apperrors.ErrCodeValidation, "title cannot be empty")
	}
	if meta.Description == "" {
		return apperrors.New(apperrors.ErrCodeValidation, "description cannot be empty")
	}
	if len(meta.Categories) == 0 {
		return apperrors.New(apperrors.ErrCodeValidation,
			"categories cannot be empty; declare at least one category")
	}
	if meta.Author == "" {
		return apperrors.New(apperrors.ErrCodeValidation, "author cannot be empty")
	}
	if meta.Votes < 0 {
		return apperrors.New(apperrors.ErrCodeValidation, "votes cannot be negative")
	}

	seen := make(map[string]bool, len(meta.Parameters))
	for _, param := range meta.Parameters {
		if err := validateParameter(param, seen); err != nil {
			return err
		}
	}
	return nil
}

func validateParameter(param models.ParameterDefinition, seen map[string]bool) error {
	if param.Name == "" {
		return apperrors.New(apperrors.ErrCodeValidation, "parameter name cannot be empty")
	}
	if seen[param.Name] {
		return apperrors.Newf(apperrors.ErrCodeValidation,
			"duplicate parameter name '%s'; parameter names must be unique within a template", param.Name)
	}
	seen[param.Name] = true

	if !param.Type.Valid() {
		return apperrors.Newf(apperrors.ErrCodeValidation,
			"parameter '%s' has unknown type '%s'; use one of string, number, boolean, array",
			param.Name, param.Type)
	}

	if param.Default != nil {
		actual, ok := models.TypeOfValue(param.Default)
		if !ok || actual != param.Type {
			return apperrors.Newf(apperrors.ErrCodeValidation,
				"parameter '%s' default value type mismatch: declared as %s but default is %s; fix the default in the frontmatter",
				param.Name, param.Type, models.TypeName(param.Default))
		}
		if param.Required {
			return apperrors.Newf(apperrors.ErrCodeValidation,
				"parameter '%s' is marked required but declares a default; remove 'required: true' or remove the default",
				param.Name)
		}
	}
	return nil
}
