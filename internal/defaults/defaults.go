// Package defaults ships the built-in starter templates seeded into a
// fresh prompts directory.
package defaults

import (
	"embed"
	"log/slog"
	"strings"

	apperrors "github.com/promptkeep/promptkeep/internal/errors"
	"github.com/promptkeep/promptkeep/internal/storage"
)

//go:embed templates/*.prompt.md
var templatesFS embed.FS

// Template is an embedded starter template.
type Template struct {
	Name    string
	Content string
}

// Templates returns the built-in templates in a stable order.
func Templates() []Template {
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		// The embedded tree is fixed at build time; this cannot fail on a
		// correctly built binary.
		panic(err)
	}
	out := make([]Template, 0, len(entries))
	for _, entry := range entries {
		content, err := templatesFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			panic(err)
		}
		out = append(out, Template{
			Name:    strings.TrimSuffix(entry.Name(), storage.FileSuffix),
			Content: string(content),
		})
	}
	return out
}

// Seed writes each built-in template that does not already exist, using
// the same create-if-absent semantics as add: a file the user already
// created (or customized) is never overwritten. Idempotent.
func Seed(store *storage.Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, tpl := range Templates() {
		err := store.Create(tpl.Name, tpl.Content)
		switch {
		case err == nil:
			logger.Debug("seeded default prompt", "name", tpl.Name)
		case apperrors.HasCode(err, apperrors.ErrCodeAlreadyExists):
			logger.Debug("default prompt already present", "name", tpl.Name)
		default:
			return err
		}
	}
	return nil
}
