package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonExtractor implements LanguageExtractor for Python.
type PythonExtractor struct{}

func (p *PythonExtractor) Name() string {
	return "python"
}

func (p *PythonExtractor) Extensions() []string {
	return []string{".py"}
}

func (p *PythonExtractor) GetLanguage() *sitter.Language {
	return python.GetLanguage()
}

func (p *PythonExtractor) Inspect(root *sitter.Node, sourceCode []byte, constructors map[string]bool) Facts {
	var facts Facts
	// Calls already attributed to a top-level binding, keyed by start byte.
	claimed := make(map[uint32]bool)

	for i := 0; i < int(root.NamedChildCount()); i++ {
		stmt := root.NamedChild(i)
		switch stmt.Type() {
		case "if_statement":
			if cond := stmt.ChildByFieldName("condition"); cond != nil && hasMainComparison(cond, sourceCode) {
				facts.MainGuard = true
			}
		case "expression_statement":
			for j := 0; j < int(stmt.NamedChildCount()); j++ {
				expr := stmt.NamedChild(j)
				if expr.Type() != "assignment" {
					continue
				}
				facts.Bindings = append(facts.Bindings, assignmentBindings(expr, sourceCode, constructors, claimed)...)
			}
		}
	}

	walk(root, func(n *sitter.Node) {
		if n.Type() != "call" || claimed[n.StartByte()] {
			return
		}
		if name := calleeName(n, sourceCode); constructors[name] {
			facts.Bindings = append(facts.Bindings, Binding{
				Constructor: name,
				Line:        int(n.StartPoint().Row + 1),
			})
		}
	})
	return facts
}

// assignmentBindings handles `x = Ctor()`, `x: T = Ctor()` and chains like
// `x = y = Ctor()`. Only plain identifiers on the left count as symbols.
func assignmentBindings(assign *sitter.Node, sourceCode []byte, constructors map[string]bool, claimed map[uint32]bool) []Binding {
	var names []string
	node := assign
	for node != nil && node.Type() == "assignment" {
		if left := node.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			names = append(names, left.Content(sourceCode))
		}
		node = node.ChildByFieldName("right")
	}
	if node == nil || node.Type() != "call" {
		return nil
	}
	ctor := calleeName(node, sourceCode)
	if !constructors[ctor] || len(names) == 0 {
		return nil
	}
	claimed[node.StartByte()] = true

	line := int(node.StartPoint().Row + 1)
	out := make([]Binding, 0, len(names))
	for _, name := range names {
		out = append(out, Binding{Symbol: name, Constructor: ctor, Line: line})
	}
	return out
}

// calleeName returns `Ctor` for both `Ctor(...)` and `pkg.Ctor(...)`.
func calleeName(call *sitter.Node, sourceCode []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return fn.Content(sourceCode)
	case "attribute":
		if attr := fn.ChildByFieldName("attribute"); attr != nil {
			return attr.Content(sourceCode)
		}
	}
	return ""
}

// hasMainComparison looks for `__name__ == "__main__"` (either operand order)
// anywhere inside an if-condition, including inside and/or/not expressions.
func hasMainComparison(node *sitter.Node, sourceCode []byte) bool {
	if node.Type() == "comparison_operator" {
		var sentinel, literal, equals bool
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			switch {
			case !child.IsNamed():
				if child.Type() == "==" {
					equals = true
				}
			case child.Type() == "identifier" && child.Content(sourceCode) == "__name__":
				sentinel = true
			case child.Type() == "string" && stringValue(child, sourceCode) == "__main__":
				literal = true
			}
		}
		if sentinel && literal && equals {
			return true
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if hasMainComparison(node.NamedChild(i), sourceCode) {
			return true
		}
	}
	return false
}

func stringValue(node *sitter.Node, sourceCode []byte) string {
	s := strings.TrimLeft(node.Content(sourceCode), "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

func walk(node *sitter.Node, visit func(*sitter.Node)) {
	cursor := sitter.NewTreeCursor(node)
	defer cursor.Close()

	var rec func(*sitter.TreeCursor)
	rec = func(c *sitter.TreeCursor) {
		visit(c.CurrentNode())
		if c.GoToFirstChild() {
			rec(c)
			for c.GoToNextSibling() {
				rec(c)
			}
			c.GoToParent()
		}
	}
	rec(cursor)
}
