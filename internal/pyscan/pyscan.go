// Package pyscan performs the per-file static analysis: it parses Python
// source with tree-sitter, tracks which local names are bound to tracked SDK
// symbols, detects call expressions that resolve to a tracked provider, and
// classifies each detected call as instrumented or bare.
//
// Analysis is purely lexical. Names are resolved through a scope chain built
// in document order; dynamically constructed call targets are skipped. An
// Analyzer owns one tree-sitter parser and is not safe for concurrent use;
// callers run one Analyzer per worker.
package pyscan

import (
	"context"
	"errors"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/haserjian/assay/internal/registry"
)

// ErrSyntax marks a file whose parse tree contains errors. Callers skip the
// file and record a warning rather than aborting the scan.
var ErrSyntax = errors.New("source has syntax errors")

// Site is one call expression that resolved to a tracked provider.
type Site struct {
	Line         int    // 1-based
	Col          int    // 1-based
	Call         string // literal callee expression, e.g. "client.chat.completions.create"
	Provider     string
	Instrumented bool
	Construct    string // "decorator", "context" or "recorder" when instrumented
}

// Result holds everything extracted from one file.
type Result struct {
	Sites      []Site
	Frameworks []string // known framework imports, sorted
}

// Analyzer parses and analyzes Python files against a registry.
type Analyzer struct {
	parser *sitter.Parser
	reg    *registry.Registry
}

// New returns an Analyzer backed by a fresh tree-sitter parser.
func New(reg *registry.Registry) *Analyzer {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &Analyzer{parser: p, reg: reg}
}

// Close releases the underlying parser.
func (a *Analyzer) Close() {
	a.parser.Close()
}

// Analyze parses src and returns the detected call sites and framework
// imports. Returns ErrSyntax when the tree contains parse errors.
func (a *Analyzer) Analyze(ctx context.Context, src []byte) (*Result, error) {
	tree, err := a.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, ErrSyntax
	}

	w := newWalker(a.reg, src)
	w.walk(root)

	// Chained invocations like Client().messages.create() yield two sites
	// at the same start position, so the callee text breaks ties.
	sort.Slice(w.sites, func(i, j int) bool {
		a, b := w.sites[i], w.sites[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Call < b.Call
	})

	frameworks := make([]string, 0, len(w.frameworks))
	for name := range w.frameworks {
		frameworks = append(frameworks, name)
	}
	sort.Strings(frameworks)

	return &Result{Sites: w.sites, Frameworks: frameworks}, nil
}
