package pyscan

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/haserjian/assay/internal/registry"
)

// walker traverses one file's tree in document order, maintaining the scope
// chain as it descends and emitting a Site for every call whose callee
// resolves to a tracked provider. Binding events (imports, assignments,
// with-as aliases) take effect as they are visited, so a call only resolves
// through bindings introduced at or before its own position.
type walker struct {
	src        []byte
	reg        *registry.Registry
	scopes     []map[string]binding
	sites      []Site
	frameworks map[string]bool
}

func newWalker(reg *registry.Registry, src []byte) *walker {
	w := &walker{
		src:        src,
		reg:        reg,
		frameworks: map[string]bool{},
	}
	w.pushScope()
	return w
}

func (w *walker) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "import_statement":
		w.handleImport(n)

	case "import_from_statement":
		w.handleImportFrom(n)

	case "assignment":
		right := n.ChildByFieldName("right")
		left := n.ChildByFieldName("left")
		if right != nil {
			w.walk(right)
		}
		if left == nil {
			return
		}
		// Subscript and attribute targets evaluate their object
		// expressions; simple names do not.
		if t := left.Type(); t == "subscript" || t == "attribute" {
			w.walk(left)
		}
		if right != nil {
			w.bindTarget(left, right)
		}

	case "augmented_assignment":
		if right := n.ChildByFieldName("right"); right != nil {
			w.walk(right)
		}
		if left := n.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			w.clear(left.Content(w.src))
		}

	case "named_expression":
		value := n.ChildByFieldName("value")
		w.walk(value)
		if name := n.ChildByFieldName("name"); name != nil && value != nil {
			w.bindTarget(name, value)
		}

	case "call":
		w.detect(n)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.walk(n.NamedChild(i))
		}

	case "function_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			w.clear(name.Content(w.src))
		}
		params := n.ChildByFieldName("parameters")
		w.walkParamDefaults(params)
		w.pushScope()
		w.clearParams(params)
		w.walk(n.ChildByFieldName("body"))
		w.popScope()

	case "lambda":
		params := n.ChildByFieldName("parameters")
		w.walkParamDefaults(params)
		w.pushScope()
		w.clearParams(params)
		w.walk(n.ChildByFieldName("body"))
		w.popScope()

	case "class_definition":
		if name := n.ChildByFieldName("name"); name != nil {
			w.clear(name.Content(w.src))
		}
		w.walk(n.ChildByFieldName("superclasses"))
		w.pushScope()
		w.walk(n.ChildByFieldName("body"))
		w.popScope()

	case "with_statement":
		w.walkWithClause(n)
		w.walk(n.ChildByFieldName("body"))

	case "for_statement":
		w.walk(n.ChildByFieldName("right"))
		if left := n.ChildByFieldName("left"); left != nil {
			w.clearTargets(left)
		}
		w.walk(n.ChildByFieldName("body"))
		w.walk(n.ChildByFieldName("alternative"))

	case "delete_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.clearTargets(n.NamedChild(i))
		}

	default:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.walk(n.NamedChild(i))
		}
	}
}

// detect emits a Site when the call's callee resolves to a tracked provider
// path. Dynamic targets (subscripts, computed attributes) fail resolution
// and are skipped without comment; their argument subtrees are still walked
// by the caller.
func (w *walker) detect(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	path, _, ok := w.resolveExpr(fn)
	if !ok {
		return
	}
	provider, ok := w.reg.ProviderFor(path)
	if !ok {
		return
	}
	construct, instrumented := w.classify(n)
	w.sites = append(w.sites, Site{
		Line:         int(n.StartPoint().Row) + 1,
		Col:          int(n.StartPoint().Column) + 1,
		Call:         fn.Content(w.src),
		Provider:     provider,
		Instrumented: instrumented,
		Construct:    construct,
	})
}

// walkWithClause visits each with-item, detecting calls inside the context
// expressions and binding `as` aliases the same way assignments do.
func (w *walker) walkWithClause(n *sitter.Node) {
	var clause *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "with_clause" {
			clause = c
			break
		}
	}
	if clause == nil {
		return
	}
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		item := clause.NamedChild(i)
		if item.Type() != "with_item" {
			continue
		}
		value := item.ChildByFieldName("value")
		if value == nil {
			continue
		}
		expr := value
		var alias *sitter.Node
		if value.Type() == "as_pattern" {
			expr = value.NamedChild(0)
			alias = value.ChildByFieldName("alias")
		}
		w.walk(expr)
		if alias == nil {
			continue
		}
		// as_pattern_target wraps a bare name; anything with structure
		// (tuple targets) is not a trackable binding.
		if alias.NamedChildCount() == 0 {
			w.bindName(alias.Content(w.src), expr)
		}
	}
}

// walkParamDefaults visits default-value expressions, which evaluate in the
// enclosing scope before the function's own scope exists.
func (w *walker) walkParamDefaults(params *sitter.Node) {
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		c := params.NamedChild(i)
		switch c.Type() {
		case "default_parameter", "typed_default_parameter":
			w.walk(c.ChildByFieldName("value"))
		}
	}
}

// clearParams tombstones every parameter name in the current (function)
// scope. Parameters shadow outer bindings and never carry one themselves.
func (w *walker) clearParams(params *sitter.Node) {
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		c := params.NamedChild(i)
		switch c.Type() {
		case "identifier":
			w.clear(c.Content(w.src))
		case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
			if inner := c.NamedChild(0); inner != nil && inner.Type() == "identifier" {
				w.clear(inner.Content(w.src))
			}
		case "default_parameter", "typed_default_parameter":
			if name := c.ChildByFieldName("name"); name != nil && name.Type() == "identifier" {
				w.clear(name.Content(w.src))
			}
		case "tuple_pattern":
			w.clearTargets(c)
		}
	}
}
