// Package validation gates template submissions before they reach disk.
//
// Every add or edit runs the full pipeline: a size gate, a structural gate
// (frontmatter parse), a sandbox gate (forbidden directive scan), and a
// syntax gate (engine compile). The sandbox gate runs before the syntax
// gate because the engine resolves include/extends targets at compile time;
// scanning first guarantees a forbidden directive is reported as a security
// violation rather than as whatever compile error its missing target causes.
//
// The package is stateless and never touches the filesystem; callers supply
// the raw bytes.
package validation

import (
	"io"
	"regexp"

	"github.com/flosch/pongo2/v6"

	apperrors "github.com/promptkeep/promptkeep/internal/errors"
	"github.com/promptkeep/promptkeep/internal/frontmatter"
)

// directivePattern matches the forbidden block tags in any whitespace
// control spelling the engine accepts ({%, {%-, {%+). "from" covers the
// "from ... import ..." form; "ssi" is the engine's server-side-include
// tag, which reads the named file directly and must be banned alongside
// include.
var directivePattern = regexp.MustCompile(`\{%[-+]?\s*(include|extends|import|from|ssi)\b`)

// ValidateSubmission checks raw template file content for admissibility.
// maxSize caps the whole file in bytes.
func ValidateSubmission(raw string, maxSize int) error {
	if len(raw) > maxSize {
		return apperrors.Newf(apperrors.ErrCodeSizeLimit,
			"template too large: %d bytes (limit %d bytes); shorten the template or raise the configured maximum",
			len(raw), maxSize)
	}

	tpl, err := frontmatter.Parse("_submission", raw)
	if err != nil {
		return err
	}

	if err := CheckDirectives(tpl.Content); err != nil {
		return err
	}
	return CheckSyntax(tpl.Content)
}

// CheckDirectives scans a template body for directives that pull in or
// delegate to other templates. File inclusion defeats the size and sandbox
// guarantees of a file-based loader, so these are banned outright rather
// than sandboxed.
func CheckDirectives(body string) error {
	match := directivePattern.FindStringSubmatch(body)
	if match == nil {
		return nil
	}
	return apperrors.Newf(apperrors.ErrCodeSecurity,
		"template contains forbidden '%s' directive; file inclusion, template inheritance and imports are not allowed",
		match[1])
}

// CheckSyntax compiles the template body, reporting the engine diagnostic
// on failure. Compilation runs against a set backed by DenyLoader rather
// than the engine's default set, whose loader reads the local filesystem;
// some tags resolve file references at compile time, and those reads must
// not happen while validating untrusted input. The compiled template is
// discarded; rendering compiles its own instance inside the render worker.
func CheckSyntax(body string) error {
	set := pongo2.NewSet("submission", DenyLoader{})
	if _, err := set.FromString(body); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSyntax, "template failed to compile")
	}
	return nil
}

// DenyLoader refuses all template resolution so include/extends style tags
// stay inert even if a directive were to slip past the sandbox scan. Both
// validation and rendering compile against sets backed by it.
type DenyLoader struct{}

func (DenyLoader) Abs(base, name string) string { return name }

func (DenyLoader) Get(path string) (io.Reader, error) {
	return nil, apperrors.Newf(apperrors.ErrCodeSecurity,
		"template loading is disabled: refusing to load '%s'", path)
}
