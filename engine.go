package assay

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/haserjian/assay/internal/registry"
)

// Engine orchestrates the assay pipeline: file discovery, per-file call-site
// analysis, the auxiliary checks, aggregation and scoring.
type Engine struct {
	reg        *registry.Registry
	numWorkers int
	log        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry replaces the embedded provider registry, e.g. one loaded from
// a custom YAML file.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.reg = reg
	}
}

// WithWorkers fixes the number of analysis workers. Zero or negative selects
// one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.numWorkers = n
	}
}

// WithLogger routes engine diagnostics to l. The default discards them, so
// library consumers opt in.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an Engine using the embedded registry unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		reg: registry.Default(),
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the provider registry the Engine scans with.
func (e *Engine) Registry() *registry.Registry {
	return e.reg
}

// skipDirs are directory names excluded from the filesystem walk fallback.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"venv":         true,
}

// discoverFiles lists Python files under root as sorted repo-relative slash
// paths. If root is inside a git repository, git ls-files is used to respect
// .gitignore. Falls back to a filesystem walk (skipping hidden directories
// and skipDirs) when git is unavailable.
func (e *Engine) discoverFiles(root string) ([]string, error) {
	paths, err := gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available; fall back to walk.
		paths, err = walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) Python files under root.
func gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !isPythonFile(line) {
			continue
		}
		paths = append(paths, filepath.ToSlash(line))
	}
	return paths, nil
}

// walkListFiles discovers Python files by walking the filesystem, used as a
// fallback when git is not available.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if isPythonFile(path) {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

func isPythonFile(path string) bool {
	return strings.HasSuffix(path, ".py")
}
