// Package service is the public face of the prompt store: it composes the
// storage layer, the submission validator and the renderer into the
// operations a transport exposes to callers.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/promptkeep/promptkeep/internal/config"
	"github.com/promptkeep/promptkeep/internal/defaults"
	"github.com/promptkeep/promptkeep/internal/models"
	"github.com/promptkeep/promptkeep/internal/renderer"
	"github.com/promptkeep/promptkeep/internal/storage"
	"github.com/promptkeep/promptkeep/internal/validation"
)

// Service provides business logic for prompt management.
type Service struct {
	cfg      config.Config
	store    *storage.Store
	renderer *renderer.Renderer
	logger   *slog.Logger
}

// New creates a service over the configured prompts directory.
func New(cfg config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		store:    storage.New(cfg.Dir, logger),
		renderer: renderer.New(cfg),
		logger:   logger,
	}
}

// Init ensures the prompts directory exists and seeds the built-in
// templates. A directory failure is fatal; a seeding failure is logged and
// the service stays usable, since users can add prompts themselves.
func (s *Service) Init() error {
	if err := s.store.Init(); err != nil {
		return err
	}
	if err := defaults.Seed(s.store, s.logger); err != nil {
		s.logger.Warn("failed to seed default prompts", "error", err)
	}
	return nil
}

// Dir returns the prompts directory path.
func (s *Service) Dir() string {
	return s.store.Dir()
}

// ListPrompts returns every loadable template in the library.
func (s *Service) ListPrompts() ([]models.PromptTemplate, error) {
	return s.store.List()
}

// ListPromptsByCategory returns the templates declaring category. An
// unknown category yields an empty result, not an error.
func (s *Service) ListPromptsByCategory(category string) ([]models.PromptTemplate, error) {
	prompts, err := s.store.List()
	if err != nil {
		return nil, err
	}
	filtered := make([]models.PromptTemplate, 0, len(prompts))
	for _, tpl := range prompts {
		for _, c := range tpl.Metadata.Categories {
			if c == category {
				filtered = append(filtered, tpl)
				break
			}
		}
	}
	return filtered, nil
}

// LoadPrompt returns the template for name.
func (s *Service) LoadPrompt(name string) (models.PromptTemplate, error) {
	return s.store.Load(name)
}

// AddPrompt validates content and creates a new prompt file. Creation is
// atomic: a concurrent add of the same name fails with AlreadyExists and
// never mixes content.
func (s *Service) AddPrompt(name, content string) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	if err := validation.ValidateSubmission(content, s.cfg.MaxTemplateSize); err != nil {
		return err
	}
	return s.store.Create(name, content)
}

// EditPrompt validates content and rewrites an existing prompt file.
func (s *Service) EditPrompt(name, content string) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	if err := validation.ValidateSubmission(content, s.cfg.MaxTemplateSize); err != nil {
		return err
	}
	return s.store.Update(name, content)
}

// DeletePrompt removes a prompt file.
func (s *Service) DeletePrompt(name string) error {
	return s.store.Remove(name)
}

// RenderPrompt loads a template and renders it with the given parameters.
func (s *Service) RenderPrompt(ctx context.Context, name string, params map[string]any) (string, error) {
	tpl, err := s.store.Load(name)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(ctx, tpl, params)
}

// ListCategories returns the distinct category names across the library,
// sorted.
func (s *Service) ListCategories() ([]string, error) {
	prompts, err := s.store.List()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, tpl := range prompts {
		for _, category := range tpl.Metadata.Categories {
			seen[category] = true
		}
	}
	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories, nil
}

// SearchPrompts fuzzy-matches query against name, title, description and
// categories, best matches first. An empty query returns the whole
// library.
func (s *Service) SearchPrompts(query string) ([]models.PromptTemplate, error) {
	prompts, err := s.store.List()
	if err != nil {
		return nil, err
	}
	if query == "" {
		return prompts, nil
	}

	searchStrings := make([]string, len(prompts))
	for i, tpl := range prompts {
		searchStrings[i] = fmt.Sprintf("%s %s %s %s",
			tpl.Name,
			tpl.Metadata.Title,
			tpl.Metadata.Description,
			joinStrings(tpl.Metadata.Categories))
	}

	matches := fuzzy.Find(query, searchStrings)
	results := make([]models.PromptTemplate, 0, len(matches))
	for _, match := range matches {
		results = append(results, prompts[match.Index])
	}
	return results, nil
}

func joinStrings(parts []string) string {
	out := ""
	for i, part := range parts {
		if i > 0 {
			out += " "
		}
		out += part
	}
	return out
}
