// Package testkit holds structural checks shared by tests and fuzzers.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"quill/internal/ast"
	"quill/internal/resolve"
	"quill/internal/source"
)

// CheckSpanInvariants verifies the spans of a parsed template:
//  1. the root covers the whole file;
//  2. every span is ordered, within the file and inside its parent's span;
//  3. siblings appear in source order without overlapping.
func CheckSpanInvariants(b *ast.Builder, root ast.NodeID, sf *source.File) error {
	if b == nil || sf == nil {
		return fmt.Errorf("nil builder or file")
	}
	n := b.Get(root)
	if n == nil {
		return fmt.Errorf("root node not found")
	}
	size, err := safecast.Conv[uint32](len(sf.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	if n.Span.File != sf.ID {
		return fmt.Errorf("root span points to file %d, want %d", n.Span.File, sf.ID)
	}
	if n.Span.Start != 0 || n.Span.End != size {
		return fmt.Errorf("root span %v does not cover 0..%d", n.Span, size)
	}
	return checkNode(b, root, n.Span, size)
}

func checkNode(b *ast.Builder, id ast.NodeID, parent source.Span, size uint32) error {
	n := b.Get(id)
	if n == nil {
		return fmt.Errorf("dangling node id %d", id)
	}
	if err := checkSpan(n.Kind.String(), n.Span, parent, size); err != nil {
		return err
	}
	if err := checkList(b, n.Children, n.Span, size); err != nil {
		return err
	}
	for _, c := range n.Clauses {
		if err := checkSpan("clause", c.Span, n.Span, size); err != nil {
			return err
		}
		if err := checkList(b, c.Body, c.Span, size); err != nil {
			return err
		}
	}
	for _, a := range n.Arms {
		if err := checkSpan("arm", a.Span, n.Span, size); err != nil {
			return err
		}
		if err := checkList(b, a.Body, a.Span, size); err != nil {
			return err
		}
	}
	for _, a := range n.Attrs {
		if err := checkSpan("attribute "+a.Name, a.Span, n.Span, size); err != nil {
			return err
		}
		if err := checkList(b, a.Body, a.Span, size); err != nil {
			return err
		}
	}
	return nil
}

func checkList(b *ast.Builder, ids []ast.NodeID, parent source.Span, size uint32) error {
	var prevEnd uint32
	for i, id := range ids {
		if err := checkNode(b, id, parent, size); err != nil {
			return err
		}
		sp := b.Get(id).Span
		if i > 0 && sp.Start < prevEnd {
			return fmt.Errorf("sibling %v overlaps previous ending at %d", sp, prevEnd)
		}
		prevEnd = sp.End
	}
	return nil
}

func checkSpan(what string, sp, parent source.Span, size uint32) error {
	if sp.Start > sp.End {
		return fmt.Errorf("%s span inverted: %v", what, sp)
	}
	if sp.End > size {
		return fmt.Errorf("%s span %v beyond content (%d bytes)", what, sp, size)
	}
	if sp.File != parent.File || sp.Start < parent.Start || sp.End > parent.End {
		return fmt.Errorf("%s span %v escapes parent %v", what, sp, parent)
	}
	return nil
}

// CheckGraphInvariants verifies a resolved graph: every template appears
// once in Order, callees precede their callers and layouts precede the
// templates that extend them.
func CheckGraphInvariants(g *resolve.Graph) error {
	if g == nil {
		return fmt.Errorf("nil graph")
	}
	pos := make(map[ast.TemplateRef]int, len(g.Order))
	for i, ref := range g.Order {
		if _, dup := pos[ref]; dup {
			return fmt.Errorf("template %d listed twice in order", ref)
		}
		pos[ref] = i
	}
	if int(g.Templates.Len()) != len(g.Order) {
		return fmt.Errorf("order lists %d of %d templates", len(g.Order), g.Templates.Len())
	}
	if len(g.Order) > 0 && g.Order[len(g.Order)-1] != g.Root {
		return fmt.Errorf("root is not last in order")
	}
	for _, ref := range g.Order {
		t := g.Template(ref)
		if t.Layout.IsValid() && pos[t.Layout] > pos[ref] {
			return fmt.Errorf("%s precedes its layout", t.Path)
		}
		for _, use := range t.Uses {
			if use.Target.IsValid() && pos[use.Target] > pos[ref] {
				return fmt.Errorf("%s precedes component %s", t.Path, use.Alias)
			}
		}
	}
	return nil
}
