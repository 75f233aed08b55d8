package hostexpr

import (
	"slices"

	"github.com/expr-lang/expr/ast"
)

// FieldRoots returns the free identifiers an expression reads, in first
// use order: the roots of member chains and plain names. Called function
// names, predicate pointers and let-bound names are left out. Code that
// does not parse yields nil.
func FieldRoots(code string) []string {
	tree, err := parse(code)
	if err != nil {
		return nil
	}
	c := &rootCollector{callees: make(map[*ast.IdentifierNode]bool)}
	c.mode = collectCallees
	ast.Walk(&tree.Node, c)
	c.mode = collectRoots
	ast.Walk(&tree.Node, c)

	out := make([]string, 0, len(c.roots))
	for _, r := range c.roots {
		if !slices.Contains(c.bound, r) {
			out = append(out, r)
		}
	}
	return out
}

type collectMode uint8

const (
	collectCallees collectMode = iota
	collectRoots
)

type rootCollector struct {
	mode    collectMode
	callees map[*ast.IdentifierNode]bool
	roots   []string
	bound   []string
}

func (c *rootCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.CallNode:
		if c.mode == collectCallees {
			if id, ok := n.Callee.(*ast.IdentifierNode); ok {
				c.callees[id] = true
			}
		}
	case *ast.VariableDeclaratorNode:
		if c.mode == collectRoots {
			c.bound = append(c.bound, n.Name)
		}
	case *ast.IdentifierNode:
		if c.mode == collectRoots && !c.callees[n] && !slices.Contains(c.roots, n.Value) {
			c.roots = append(c.roots, n.Value)
		}
	}
}
