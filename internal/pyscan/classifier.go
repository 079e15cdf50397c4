package pyscan

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// classify decides whether a detected call is instrumented and by which
// construct. Three patterns count, checked from the most immediate outward:
// the call's result passed directly to a recording call, a scoped-capture
// with-block, and a wrapping decorator on the nearest enclosing function.
// The ascent stops at the nearest function boundary: a capture block outside
// a nested def does not cover calls inside it, since those run later.
func (w *walker) classify(call *sitter.Node) (construct string, instrumented bool) {
	if w.recorded(call) {
		return "recorder", true
	}
	for p := call.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "with_statement":
			if w.captureContext(p) {
				return "context", true
			}
		case "function_definition":
			if w.captureDecorator(p) {
				return "decorator", true
			}
			return "", false
		case "lambda":
			return "", false
		}
	}
	return "", false
}

// recorded reports whether the call's value is passed straight into a
// recognized recording call, e.g. assay.record(client.chat.completions.create(...)).
// Await, parentheses and keyword arguments are transparent; any other
// intervening expression means the value was transformed first.
func (w *walker) recorded(call *sitter.Node) bool {
	n := call
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "await", "parenthesized_expression", "keyword_argument":
			n = p
		case "argument_list":
			outer := p.Parent()
			if outer == nil || outer.Type() != "call" {
				return false
			}
			path, _, ok := w.resolveExpr(outer.ChildByFieldName("function"))
			return ok && w.reg.IsRecorder(path)
		default:
			return false
		}
	}
	return false
}

// captureContext reports whether any item of the with-statement resolves to
// a recognized scoped-capture context.
func (w *walker) captureContext(stmt *sitter.Node) bool {
	var clause *sitter.Node
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		if c := stmt.NamedChild(i); c.Type() == "with_clause" {
			clause = c
			break
		}
	}
	if clause == nil {
		return false
	}
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		item := clause.NamedChild(i)
		if item.Type() != "with_item" {
			continue
		}
		expr := item.ChildByFieldName("value")
		if expr == nil {
			continue
		}
		if expr.Type() == "as_pattern" {
			expr = expr.NamedChild(0)
		}
		if path, _, ok := w.resolveExpr(expr); ok && w.reg.IsContext(path) {
			return true
		}
	}
	return false
}

// captureDecorator reports whether the function carries a recognized
// wrapping decorator. Decorator expressions resolve through the same
// binding table, so aliased instrumentation imports are recognized.
func (w *walker) captureDecorator(fn *sitter.Node) bool {
	parent := fn.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return false
	}
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		dec := parent.NamedChild(i)
		if dec.Type() != "decorator" {
			continue
		}
		expr := dec.NamedChild(0)
		if expr == nil {
			continue
		}
		if expr.Type() == "call" {
			expr = expr.ChildByFieldName("function")
		}
		if path, _, ok := w.resolveExpr(expr); ok && w.reg.IsDecorator(path) {
			return true
		}
	}
	return false
}
