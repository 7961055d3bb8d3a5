// Package renderer executes prompt templates against caller parameters and
// a filtered view of the process environment.
//
// The embedded engine is pongo2 (Jinja style syntax). Execution runs in its
// own goroutine with a fresh engine instance per render and a hard
// wall-clock deadline, so a pathological template cannot starve concurrent
// work or leak engine state between renders.
package renderer

import (
	"context"
	"os"
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/promptkeep/promptkeep/internal/config"
	"github.com/promptkeep/promptkeep/internal/envfilter"
	apperrors "github.com/promptkeep/promptkeep/internal/errors"
	"github.com/promptkeep/promptkeep/internal/models"
	"github.com/promptkeep/promptkeep/internal/validation"
)

// EnvContextKey is the reserved context key under which the filtered
// environment is injected, as an ordered list of "KEY=VALUE" strings.
// The list shape lets templates iterate and filter entries without the
// engine needing dotted-key lookup, and avoids exposing a raw map that
// could be probed for keys outside the allowlist.
const EnvContextKey = "env"

func init() {
	// Rendered output is plain text, not markup; escaping would corrupt it.
	pongo2.SetAutoescape(false)
}

// Renderer renders prompt templates under the limits in cfg.
type Renderer struct {
	cfg config.Config

	// environ is swappable in tests.
	environ func() []string
}

// New creates a renderer.
func New(cfg config.Config) *Renderer {
	return &Renderer{cfg: cfg, environ: os.Environ}
}

// Render assembles the render context and executes the template body.
// Parameter size limits are enforced before any type logic so oversized
// input is rejected at minimal cost.
func (r *Renderer) Render(ctx context.Context, tpl models.PromptTemplate, params map[string]any) (string, error) {
	if err := r.validateSizes(params); err != nil {
		return "", err
	}
	if err := validateAgainstDefinitions(tpl, params); err != nil {
		return "", err
	}

	data := applyDefaults(tpl, params)
	data[EnvContextKey] = envfilter.Filter(r.environ(), r.cfg.EnvAllowPatterns, r.cfg.EnvDenyPatterns)

	// Files edited out of band bypass the write-time validator, so the
	// sandbox scan runs again here before the body reaches the engine.
	if err := validation.CheckDirectives(tpl.Content); err != nil {
		return "", err
	}

	return r.execute(ctx, tpl.Name, tpl.Content, data)
}

func (r *Renderer) validateSizes(params map[string]any) error {
	if len(params) > r.cfg.MaxParamCount {
		return apperrors.Newf(apperrors.ErrCodeSizeLimit,
			"too many parameters: %d (limit %d); reduce the number of parameters or raise the configured maximum",
			len(params), r.cfg.MaxParamCount)
	}

	total := 0
	for name, value := range params {
		size := models.ValueSize(value)
		if size > r.cfg.MaxParamSize {
			return apperrors.Newf(apperrors.ErrCodeSizeLimit,
				"parameter '%s' is too large: %d bytes (limit %d bytes); split the data or pass a file reference instead",
				name, size, r.cfg.MaxParamSize)
		}
		total += size
	}
	if total > r.cfg.MaxTotalParamsSize {
		return apperrors.Newf(apperrors.ErrCodeSizeLimit,
			"total parameter size too large: %d bytes (limit %d bytes); reduce parameter sizes",
			total, r.cfg.MaxTotalParamsSize)
	}
	return nil
}

func validateAgainstDefinitions(tpl models.PromptTemplate, params map[string]any) error {
	for _, def := range tpl.Metadata.Parameters {
		if def.Required {
			if _, ok := params[def.Name]; !ok {
				return apperrors.Newf(apperrors.ErrCodeMissingParameter,
					"required parameter '%s' not provided; description: %s", def.Name, def.Description)
			}
		}
	}
	for _, def := range tpl.Metadata.Parameters {
		value, ok := params[def.Name]
		if !ok {
			continue
		}
		actual, known := models.TypeOfValue(value)
		if !known || actual != def.Type {
			return apperrors.Newf(apperrors.ErrCodeTypeMismatch,
				"parameter '%s' has wrong type: expected %s, got %s", def.Name, def.Type, models.TypeName(value))
		}
	}
	return nil
}

// applyDefaults copies the caller's parameters into a fresh map and fills
// in defaults for declared parameters the caller omitted. Required
// parameters never carry defaults, so they cannot be silently filled here.
func applyDefaults(tpl models.PromptTemplate, params map[string]any) map[string]any {
	data := make(map[string]any, len(params)+len(tpl.Metadata.Parameters)+1)
	for key, value := range params {
		data[key] = value
	}
	for _, def := range tpl.Metadata.Parameters {
		if _, ok := data[def.Name]; !ok && def.Default != nil {
			data[def.Name] = def.Default
		}
	}
	return data
}

func (r *Renderer) execute(ctx context.Context, name, body string, data map[string]any) (string, error) {
	type outcome struct {
		text string
		err  error
	}
	// Buffered so the worker can always deliver and exit after a timeout.
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: apperrors.Newf(apperrors.ErrCodeRenderEngineFault,
					"template engine panicked: %v", rec)}
			}
		}()

		// Engine state is not safe to share across renders; each render
		// compiles against its own set with template loading disabled.
		set := pongo2.NewSet(name, validation.DenyLoader{})
		compiled, err := set.FromString(body)
		if err != nil {
			done <- outcome{err: apperrors.Wrap(err, apperrors.ErrCodeSyntax,
				"template failed to compile")}
			return
		}
		text, err := compiled.Execute(pongo2.Context(data))
		if err != nil {
			done <- outcome{err: apperrors.Wrap(err, apperrors.ErrCodeRender,
				"template execution failed")}
			return
		}
		done <- outcome{text: text}
	}()

	timer := time.NewTimer(r.cfg.RenderTimeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.text, out.err
	case <-timer.C:
		return "", apperrors.Newf(apperrors.ErrCodeRenderTimeout,
			"rendering timed out after %s; the template may contain unbounded loops or deeply nested constructs, simplify it and retry",
			r.cfg.RenderTimeout)
	case <-ctx.Done():
		return "", apperrors.Wrap(ctx.Err(), apperrors.ErrCodeRender, "render canceled")
	}
}
