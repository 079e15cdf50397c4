// Spike: validate that the Python grammar bundled with smacker/go-tree-sitter
// exposes everything the scanner needs.
//
// Goal: prove we can (1) walk call expressions and read dotted attribute
// chains off the "function" field, (2) climb from a call to an enclosing
// decorated function or with statement, and (3) detect syntax errors via
// RootNode().HasError() instead of a parse failure.
package main

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

const sample = `import openai
import assay

client = openai.OpenAI()


@assay.capture
def ask(prompt):
    return client.chat.completions.create(model="gpt-4", messages=[prompt])


def summarize(text):
    with assay.session("batch"):
        return client.completions.create(prompt=text)
`

const broken = `def unfinished(:
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	src := []byte(sample)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return fmt.Errorf("parsing: %w", err)
	}
	defer tree.Close()

	fmt.Println("calls in sample:")
	walk(tree.RootNode(), func(n *sitter.Node) {
		if n.Type() != "call" {
			return
		}
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return
		}
		pt := n.StartPoint()
		fmt.Printf("  %d:%d %-40s enclosure=%s\n",
			pt.Row+1, pt.Column+1, dotted(fn, src), enclosure(n, src))
	})

	// Broken source must parse into a tree that flags the error.
	badTree, err := parser.ParseCtx(ctx, nil, []byte(broken))
	if err != nil {
		return fmt.Errorf("parsing broken source: %w", err)
	}
	defer badTree.Close()
	fmt.Printf("broken source HasError: %v\n", badTree.RootNode().HasError())

	return nil
}

// walk visits every named node in document order.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

// dotted renders an attribute chain like client.chat.completions.create.
// Anything more exotic than identifier/attribute comes back verbatim.
func dotted(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "identifier":
		return n.Content(src)
	case "attribute":
		obj := n.ChildByFieldName("object")
		attr := n.ChildByFieldName("attribute")
		if obj == nil || attr == nil {
			return n.Content(src)
		}
		return dotted(obj, src) + "." + attr.Content(src)
	default:
		return n.Content(src)
	}
}

// enclosure climbs the ancestor chain and names the first construct that
// would instrument this call: a decorated function or a with statement.
func enclosure(n *sitter.Node, src []byte) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "with_statement":
			return "with"
		case "function_definition":
			if gp := p.Parent(); gp != nil && gp.Type() == "decorated_definition" {
				dec := gp.NamedChild(0)
				return "decorator " + dec.Content(src)
			}
			return "plain function"
		}
	}
	return "module"
}
