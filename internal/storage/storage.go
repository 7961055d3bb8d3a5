// Package storage owns the prompts directory: atomic file CRUD plus an
// mtime-validated read cache keyed by prompt name.
//
// The directory is the database. Each template is a single file named
// <name>.prompt.md, inspectable and editable with any text editor; the
// cache is only an optimization over disk reads and is re-validated
// against the file's modification time on every load, so out-of-band
// edits are picked up without an invalidation signal.
package storage

import (
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	apperrors "github.com/promptkeep/promptkeep/internal/errors"
	"github.com/promptkeep/promptkeep/internal/frontmatter"
	"github.com/promptkeep/promptkeep/internal/models"
)

// FileSuffix identifies template files. It is the single naming
// convention: one suffix means two differently-extensioned files can never
// resolve to the same logical name.
const FileSuffix = ".prompt.md"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName rejects names that could escape the prompts directory.
// Only alphanumerics, hyphens and underscores are allowed, which also
// excludes path separators and "..".
func ValidateName(name string) error {
	if name == "" {
		return apperrors.New(apperrors.ErrCodeInvalidName, "prompt name cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return apperrors.Newf(apperrors.ErrCodeInvalidName,
			"invalid prompt name '%s': only letters, digits, hyphens and underscores are allowed", name)
	}
	return nil
}

type cacheEntry struct {
	template models.PromptTemplate
	mtime    time.Time
}

// Store provides file-backed prompt storage with an in-process cache. The
// cache map is the only mutable shared state; all mutation funnels through
// the public operations under the lock.
type Store struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry

	// readFile is swappable in tests to observe disk reads.
	readFile func(string) ([]byte, error)
}

// New creates a store over dir. Call Init before use.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:      dir,
		logger:   logger,
		cache:    make(map[string]cacheEntry),
		readFile: os.ReadFile,
	}
}

// Dir returns the prompts directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Init ensures the prompts directory exists.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeIO,
			"failed to create prompts directory %s", s.dir)
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+FileSuffix)
}

// Load returns the template for name, from cache when the backing file's
// mtime still matches, otherwise from disk.
func (s *Store) Load(name string) (models.PromptTemplate, error) {
	var zero models.PromptTemplate
	if err := ValidateName(name); err != nil {
		return zero, err
	}
	path := s.path(name)

	s.mu.RLock()
	entry, cached := s.cache[name]
	s.mu.RUnlock()
	if cached {
		if info, err := os.Stat(path); err == nil && info.ModTime().Equal(entry.mtime) {
			return entry.template.Clone(), nil
		}
		// Stale or unstattable: fall through to reload.
	}

	raw, err := s.readFile(path)
	if err != nil {
		return zero, classifyIOError(err, name, "read")
	}
	info, err := os.Stat(path)
	if err != nil {
		return zero, classifyIOError(err, name, "stat")
	}

	tpl, err := frontmatter.Parse(name, string(raw))
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	s.cache[name] = cacheEntry{template: tpl.Clone(), mtime: info.ModTime()}
	s.mu.Unlock()

	return tpl, nil
}

// List enumerates the directory and returns every loadable template.
// Non-regular files, names outside the convention, and entries that fail
// to load are skipped; load failures are logged so a broken file does not
// hide the rest of the library. Order follows directory enumeration.
func (s *Store) List() ([]models.PromptTemplate, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeIO,
			"failed to read prompts directory %s", s.dir)
	}

	var prompts []models.PromptTemplate
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			s.logger.Debug("skipping non-regular directory entry", "entry", entry.Name())
			continue
		}
		base := entry.Name()
		if !strings.HasSuffix(base, FileSuffix) {
			continue
		}
		name := strings.TrimSuffix(base, FileSuffix)
		if err := ValidateName(name); err != nil {
			s.logger.Warn("skipping prompt with invalid name", "entry", base)
			continue
		}
		tpl, err := s.Load(name)
		if err != nil {
			s.logger.Warn("skipping unloadable prompt", "name", name, "error", err)
			continue
		}
		prompts = append(prompts, tpl)
	}
	return prompts, nil
}

// Create writes a new prompt file. The O_EXCL create is the correctness
// mechanism for concurrent creators, in this process or another: exactly
// one wins, the rest observe AlreadyExists.
func (s *Store) Create(name, content string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	file, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if stderrors.Is(err, fs.ErrExist) {
			return apperrors.Newf(apperrors.ErrCodeAlreadyExists,
				"prompt '%s' already exists; use edit to modify it", name)
		}
		return classifyIOError(err, name, "create")
	}
	return s.writeAndSync(file, name, content)
}

// Update rewrites an existing prompt file. Opening without O_CREATE keeps
// edit-only semantics: a missing file is NotFound, never a silent create.
func (s *Store) Update(name, content string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	file, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return apperrors.Newf(apperrors.ErrCodeNotFound,
				"prompt '%s' not found; use add to create it", name)
		}
		return classifyIOError(err, name, "open")
	}
	return s.writeAndSync(file, name, content)
}

// Remove deletes a prompt file.
func (s *Store) Remove(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		return classifyIOError(err, name, "delete")
	}
	s.invalidate(name)
	return nil
}

// writeAndSync writes content, flushes it durably to storage, and
// invalidates the cache entry. It owns closing file.
func (s *Store) writeAndSync(file *os.File, name, content string) error {
	if _, err := file.WriteString(content); err != nil {
		file.Close()
		return apperrors.Wrapf(err, apperrors.ErrCodeIO, "failed to write prompt '%s'", name)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return apperrors.Wrapf(err, apperrors.ErrCodeIO, "failed to sync prompt '%s' to disk", name)
	}
	if err := file.Close(); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeIO, "failed to close prompt '%s'", name)
	}
	s.invalidate(name)
	return nil
}

func (s *Store) invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// setReadFile installs a read function for tests.
func (s *Store) setReadFile(fn func(string) ([]byte, error)) {
	s.readFile = fn
}

func classifyIOError(err error, name, op string) error {
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return apperrors.Newf(apperrors.ErrCodeNotFound,
			"prompt '%s' not found; use add to create it", name)
	case stderrors.Is(err, fs.ErrPermission):
		return apperrors.Wrapf(err, apperrors.ErrCodePermissionDenied,
			"permission denied to %s prompt '%s'; check file and directory permissions", op, name)
	default:
		return apperrors.Wrapf(err, apperrors.ErrCodeIO, "failed to %s prompt '%s'", op, name)
	}
}
