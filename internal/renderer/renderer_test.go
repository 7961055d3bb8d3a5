package renderer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptkeep/promptkeep/internal/config"
	apperrors "github.com/promptkeep/promptkeep/internal/errors"
	"github.com/promptkeep/promptkeep/internal/models"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.EnvAllowPatterns = []string{"*"}
	cfg.EnvDenyPatterns = []string{"*_SECRET"}
	return cfg
}

func testRenderer(cfg config.Config) *Renderer {
	r := New(cfg)
	r.environ = func() []string {
		return []string{"DB_HOST=localhost", "DB_SECRET=hunter2"}
	}
	return r
}

func template(body string, params ...models.ParameterDefinition) models.PromptTemplate {
	return models.PromptTemplate{
		Name: "test",
		Metadata: models.PromptMetadata{
			Title:       "T",
			Description: "D",
			Categories:  []string{"c"},
			Author:      "a",
			Parameters:  params,
		},
		Content: body,
	}
}

func TestRenderSubstitutesParameters(t *testing.T) {
	r := testRenderer(testConfig())
	tpl := template("Hello {{ x }}",
		models.ParameterDefinition{Name: "x", Description: "who", Type: models.ParamString, Required: true})

	out, err := r.Render(context.Background(), tpl, map[string]any{"x": "World"})
	require.NoError(t, err)
	assert.Equal(t, "Hello World", out)
}

func TestRenderMissingRequiredParameter(t *testing.T) {
	r := testRenderer(testConfig())
	tpl := template("Hello {{ x }}",
		models.ParameterDefinition{Name: "x", Description: "who to greet", Type: models.ParamString, Required: true})

	_, err := r.Render(context.Background(), tpl, map[string]any{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingParameter))
	assert.Contains(t, err.Error(), "'x'")
	assert.Contains(t, err.Error(), "who to greet")
}

func TestRenderTypeMismatch(t *testing.T) {
	r := testRenderer(testConfig())
	tpl := template("{{ n }}",
		models.ParameterDefinition{Name: "n", Type: models.ParamNumber})

	_, err := r.Render(context.Background(), tpl, map[string]any{"n": "ten"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTypeMismatch))
	assert.Contains(t, err.Error(), "'n'")
	assert.Contains(t, err.Error(), "number")
	assert.Contains(t, err.Error(), "string")
}

func TestRenderAppliesDefaults(t *testing.T) {
	r := testRenderer(testConfig())
	tpl := template("{{ greeting }} {{ x }}",
		models.ParameterDefinition{Name: "greeting", Type: models.ParamString, Default: "Hi"},
		models.ParameterDefinition{Name: "x", Type: models.ParamString, Required: true})

	out, err := r.Render(context.Background(), tpl, map[string]any{"x": "there"})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", out)

	// A supplied value wins over the default.
	out, err = r.Render(context.Background(), tpl, map[string]any{"greeting": "Yo", "x": "there"})
	require.NoError(t, err)
	assert.Equal(t, "Yo there", out)
}

func TestRenderDoesNotMutateCallerParams(t *testing.T) {
	r := testRenderer(testConfig())
	tpl := template("{{ greeting }}",
		models.ParameterDefinition{Name: "greeting", Type: models.ParamString, Default: "Hi"})

	params := map[string]any{}
	_, err := r.Render(context.Background(), tpl, params)
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestRenderInjectsFilteredEnvironment(t *testing.T) {
	r := testRenderer(testConfig())
	tpl := template("{% for e in env %}{{ e }};{% endfor %}")

	out, err := r.Render(context.Background(), tpl, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "DB_HOST=localhost;")
	assert.NotContains(t, out, "DB_SECRET")
}

func TestRenderTooManyParameters(t *testing.T) {
	cfg := testConfig()
	cfg.MaxParamCount = 2
	r := testRenderer(cfg)

	_, err := r.Render(context.Background(), template("x"),
		map[string]any{"a": "1", "b": "2", "c": "3"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSizeLimit))
	assert.Contains(t, err.Error(), "too many parameters")
}

func TestRenderParameterTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxParamSize = 10
	r := testRenderer(cfg)

	_, err := r.Render(context.Background(), template("x"),
		map[string]any{"big": strings.Repeat("y", 11)})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSizeLimit))
	assert.Contains(t, err.Error(), "'big'")
}

func TestRenderTotalParametersTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTotalParamsSize = 15
	r := testRenderer(cfg)

	_, err := r.Render(context.Background(), template("x"),
		map[string]any{"a": strings.Repeat("y", 10), "b": strings.Repeat("y", 10)})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSizeLimit))
	assert.Contains(t, err.Error(), "total parameter size")
}

func TestRenderTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RenderTimeout = 100 * time.Millisecond
	r := testRenderer(cfg)

	xs := make([]string, 200)
	for i := range xs {
		xs[i] = "x"
	}
	tpl := template("{% for a in xs %}{% for b in xs %}{% for c in xs %}.{% endfor %}{% endfor %}{% endfor %}")

	start := time.Now()
	_, err := r.Render(context.Background(), tpl, map[string]any{"xs": xs})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRenderTimeout), "got: %v", err)
	// Returns within a bounded margin above the configured timeout.
	assert.Less(t, elapsed, 2*time.Second)
}

func TestRenderForbiddenDirectiveInStoredFile(t *testing.T) {
	// A file edited out of band can contain directives that never went
	// through the submission validator; the render path rejects them too.
	r := testRenderer(testConfig())
	tpl := template(`{% include "/etc/passwd" %}`)

	_, err := r.Render(context.Background(), tpl, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSecurity))
}

func TestRenderRejectsServerSideInclude(t *testing.T) {
	// The engine's ssi tag reads the named file directly, without going
	// through the template loader; a stored body using it must be rejected
	// before execution and the file's contents must never reach the output.
	secret := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("do-not-leak"), 0o600))

	r := testRenderer(testConfig())
	tpl := template(fmt.Sprintf("{%% ssi %q %%}", secret))

	out, err := r.Render(context.Background(), tpl, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSecurity))
	assert.NotContains(t, out, "do-not-leak")
	assert.Empty(t, out)
}

func TestRenderCanceledContext(t *testing.T) {
	cfg := testConfig()
	r := testRenderer(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	xs := make([]string, 200)
	tpl := template("{% for a in xs %}{% for b in xs %}{% for c in xs %}.{% endfor %}{% endfor %}{% endfor %}")
	_, err := r.Render(ctx, tpl, map[string]any{"xs": xs})
	require.Error(t, err)
}
