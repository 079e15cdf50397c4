// Package registry holds the static tables the scanner consumes: which
// provider SDK modules are tracked, which constructs count as evidence
// instrumentation, and which frameworks are reported informationally.
// The tables are loaded once and immutable afterwards.
package registry

import (
	"crypto/sha256"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var defaultYAML []byte

// Provider maps a set of dotted module prefixes to a provider name.
type Provider struct {
	Name    string   `yaml:"name"`
	Modules []string `yaml:"modules"`
}

// Instrumentation lists the recognized evidence-capturing constructs.
// Module is the instrumentation library's import prefix; the three pattern
// sets are exact dotted paths compared after alias resolution.
type Instrumentation struct {
	Module     string   `yaml:"module"`
	Decorators []string `yaml:"decorators"`
	Contexts   []string `yaml:"contexts"`
	Recorders  []string `yaml:"recorders"`
}

// Registry is the immutable configuration table for one scan run.
type Registry struct {
	providers   []Provider
	instr       Instrumentation
	frameworks  []string
	decorators  map[string]bool
	contexts    map[string]bool
	recorders   map[string]bool
	fingerprint string
}

// rawRegistry is the YAML document shape.
type rawRegistry struct {
	Providers       []Provider      `yaml:"providers"`
	Instrumentation Instrumentation `yaml:"instrumentation"`
	Frameworks      []string        `yaml:"frameworks"`
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the embedded registry. The embedded table is validated at
// first use; a malformed embed is a build defect, so failure panics.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := Parse(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("registry: embedded table invalid: %v", err))
		}
		defaultReg = r
	})
	return defaultReg
}

// Load reads and parses a registry table from path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}
	return r, nil
}

// Parse builds a Registry from YAML bytes. The fingerprint is the SHA-256 of
// the exact bytes, so two runs over the same table report the same value.
func Parse(data []byte) (*Registry, error) {
	var raw rawRegistry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if len(raw.Providers) == 0 {
		return nil, fmt.Errorf("no providers defined")
	}
	for _, p := range raw.Providers {
		if p.Name == "" || len(p.Modules) == 0 {
			return nil, fmt.Errorf("provider %q missing name or modules", p.Name)
		}
	}

	r := &Registry{
		providers:   raw.Providers,
		instr:       raw.Instrumentation,
		frameworks:  raw.Frameworks,
		decorators:  toSet(raw.Instrumentation.Decorators),
		contexts:    toSet(raw.Instrumentation.Contexts),
		recorders:   toSet(raw.Instrumentation.Recorders),
		fingerprint: fmt.Sprintf("%x", sha256.Sum256(data)),
	}
	return r, nil
}

func toSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return set
}

// hasDottedPrefix reports whether path is prefix itself or nests under it
// (prefix followed by a dot). "openai" covers "openai.OpenAI" but not
// "openai_helpers".
func hasDottedPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+".")
}

// ProviderFor resolves a dotted call path to the provider whose module
// prefix covers it. Longest prefix wins when entries overlap.
func (r *Registry) ProviderFor(path string) (string, bool) {
	var (
		best    string
		bestLen = -1
	)
	for _, p := range r.providers {
		for _, mod := range p.Modules {
			if hasDottedPrefix(path, mod) && len(mod) > bestLen {
				best = p.Name
				bestLen = len(mod)
			}
		}
	}
	return best, bestLen >= 0
}

// TrackedImport reports whether an import of path can produce tracked
// bindings. True when the path nests under a tracked module ("openai.OpenAI")
// or a tracked module nests under the path ("google" covers
// "google.generativeai"). Call-site matching stays one-directional; this
// wider test only gates binding creation at import statements.
func (r *Registry) TrackedImport(path string) bool {
	if path == "" {
		return false
	}
	for _, p := range r.providers {
		for _, mod := range p.Modules {
			if hasDottedPrefix(path, mod) || hasDottedPrefix(mod, path) {
				return true
			}
		}
	}
	if r.instr.Module == "" {
		return false
	}
	return hasDottedPrefix(path, r.instr.Module) || hasDottedPrefix(r.instr.Module, path)
}

// FrameworkFor resolves an imported dotted path to a known framework name.
func (r *Registry) FrameworkFor(path string) (string, bool) {
	for _, f := range r.frameworks {
		if hasDottedPrefix(path, f) {
			return f, true
		}
	}
	return "", false
}

// IsDecorator reports whether a resolved dotted path is a recognized
// wrapping decorator.
func (r *Registry) IsDecorator(path string) bool { return r.decorators[path] }

// IsContext reports whether a resolved dotted path is a recognized
// scoped-capture context manager.
func (r *Registry) IsContext(path string) bool { return r.contexts[path] }

// IsRecorder reports whether a resolved dotted path is a recognized
// recording call.
func (r *Registry) IsRecorder(path string) bool { return r.recorders[path] }

// ProviderNames returns all provider names in sorted order. Reports list
// every provider, including those with zero detected sites.
func (r *Registry) ProviderNames() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Fingerprint returns the SHA-256 hex digest of the table's YAML bytes.
func (r *Registry) Fingerprint() string { return r.fingerprint }
