package pyscan

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// binding associates a local name with the dotted SDK path it refers to.
// hops counts assignment steps away from the import that introduced the
// path: import bindings are hop 0, a variable assigned from a hop-0
// reference is hop 1. Propagation stops there; anything further is treated
// as unresolvable. An empty path is a tombstone recording that the name was
// rebound to something untracked.
type binding struct {
	path string
	hops int
}

func (w *walker) pushScope() {
	w.scopes = append(w.scopes, map[string]binding{})
}

func (w *walker) popScope() {
	w.scopes = w.scopes[:len(w.scopes)-1]
}

// bind records name -> b in the innermost scope.
func (w *walker) bind(name string, b binding) {
	w.scopes[len(w.scopes)-1][name] = b
}

// clear tombstones name in the innermost scope so later uses do not resolve
// through an outer binding it shadows.
func (w *walker) clear(name string) {
	w.bind(name, binding{})
}

// lookup walks the scope chain innermost-out. The first scope that knows the
// name decides; a tombstone there means unresolved even if an outer scope
// still holds a live binding.
func (w *walker) lookup(name string) (binding, bool) {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if b, ok := w.scopes[i][name]; ok {
			return b, b.path != ""
		}
	}
	return binding{}, false
}

// resolveExpr reduces an expression to the dotted path it refers to, when
// that path is rooted at a tracked binding. Calls are transparent so that
// OpenAI().chat resolves the same as client.chat; attribute segments append
// verbatim. The returned hops is the base binding's hop count.
func (w *walker) resolveExpr(n *sitter.Node) (path string, hops int, ok bool) {
	if n == nil {
		return "", 0, false
	}
	switch n.Type() {
	case "identifier":
		b, ok := w.lookup(n.Content(w.src))
		return b.path, b.hops, ok
	case "attribute":
		base, hops, ok := w.resolveExpr(n.ChildByFieldName("object"))
		if !ok {
			return "", 0, false
		}
		attr := n.ChildByFieldName("attribute")
		if attr == nil {
			return "", 0, false
		}
		return base + "." + attr.Content(w.src), hops, true
	case "call":
		return w.resolveExpr(n.ChildByFieldName("function"))
	case "await":
		return w.resolveExpr(n.NamedChild(0))
	case "parenthesized_expression":
		return w.resolveExpr(n.NamedChild(0))
	case "named_expression":
		return w.resolveExpr(n.ChildByFieldName("value"))
	case "assignment":
		return w.resolveExpr(n.ChildByFieldName("right"))
	default:
		return "", 0, false
	}
}

// bindTarget applies an assignment's effect on the binding table. A simple
// name assigned from a hop-0 reference becomes a hop-1 binding; everything
// else tombstones the touched names per the shadowing rule.
func (w *walker) bindTarget(target, value *sitter.Node) {
	switch target.Type() {
	case "identifier":
		w.bindName(target.Content(w.src), value)
	case "pattern_list", "tuple_pattern", "list_pattern":
		w.clearTargets(target)
	}
}

// bindName binds name from a value expression under the one-hop rule.
func (w *walker) bindName(name string, value *sitter.Node) {
	if path, hops, ok := w.resolveExpr(value); ok && hops == 0 {
		w.bind(name, binding{path: path, hops: 1})
		return
	}
	w.clear(name)
}

// clearTargets tombstones every simple name inside an unpacking target.
// Attribute and subscript targets bind no local name and are left alone.
func (w *walker) clearTargets(n *sitter.Node) {
	switch n.Type() {
	case "identifier":
		w.clear(n.Content(w.src))
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.clearTargets(n.NamedChild(i))
		}
	}
}

// handleImport processes `import a.b` and `import a.b as c` forms. Plain
// imports bind the first path segment the way the interpreter does; aliased
// imports bind the alias to the full path. Untracked imports tombstone the
// name they would have bound, since they shadow whatever held it before.
func (w *walker) handleImport(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "dotted_name":
			full := c.Content(w.src)
			w.noteFramework(full)
			first, _, _ := strings.Cut(full, ".")
			if w.reg.TrackedImport(full) {
				w.bind(first, binding{path: first})
			} else {
				w.clear(first)
			}
		case "aliased_import":
			nameNode := c.ChildByFieldName("name")
			aliasNode := c.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			full := nameNode.Content(w.src)
			alias := aliasNode.Content(w.src)
			w.noteFramework(full)
			if w.reg.TrackedImport(full) {
				w.bind(alias, binding{path: full})
			} else {
				w.clear(alias)
			}
		}
	}
}

// handleImportFrom processes `from a.b import c [as d]` forms. Relative
// imports cannot be resolved without package layout, so their names are
// tombstoned; wildcard imports bind nothing we can see.
func (w *walker) handleImportFrom(n *sitter.Node) {
	mod := n.ChildByFieldName("module_name")
	relative := mod == nil || mod.Type() != "dotted_name"

	var modPath string
	if !relative {
		modPath = mod.Content(w.src)
		w.noteFramework(modPath)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if mod != nil && c.StartByte() == mod.StartByte() {
			continue
		}
		var sym, local string
		switch c.Type() {
		case "dotted_name":
			sym = c.Content(w.src)
			local = sym
		case "aliased_import":
			nameNode := c.ChildByFieldName("name")
			aliasNode := c.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			sym = nameNode.Content(w.src)
			local = aliasNode.Content(w.src)
		default:
			continue
		}
		if relative {
			w.clear(local)
			continue
		}
		full := modPath + "." + sym
		if w.reg.TrackedImport(full) {
			w.bind(local, binding{path: full})
		} else {
			w.clear(local)
		}
	}
}

func (w *walker) noteFramework(path string) {
	if name, ok := w.reg.FrameworkFor(path); ok {
		w.frameworks[name] = true
	}
}
