package sema

import (
	"fmt"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/resolve"
	"quill/internal/source"
)

// checkImports reports duplicate and unused @use aliases.
func (c *checker) checkImports() {
	for _, ref := range c.g.Order {
		tmpl := c.g.Template(ref)
		rep := c.reporter(tmpl)
		first := make(map[string]*resolve.UseRecord, len(tmpl.Uses))
		for _, use := range tmpl.Uses {
			if prev, dup := first[use.Alias]; dup {
				diag.ReportWarning(rep, diag.SemaDuplicateImport, use.Span,
					fmt.Sprintf("alias '%s' is already imported; this import is ignored", use.Alias)).
					WithNote(prev.Span, "first imported here").
					Emit()
				continue
			}
			first[use.Alias] = use
			if !c.used[use] {
				diag.ReportWarning(rep, diag.SemaUnusedImport, use.Span,
					fmt.Sprintf("import '%s' is never used", use.Alias)).Emit()
			}
		}
	}
}

type sectionDef struct {
	name string
	span source.Span
}

// checkSections matches section definitions against @render slots along
// layout chains, and body content against @render_body.
func (c *checker) checkSections() {
	defs := make(map[ast.TemplateRef][]sectionDef)
	renders := make(map[ast.TemplateRef]map[string]bool)
	rendersBody := make(map[ast.TemplateRef]bool)

	for _, ref := range c.g.Order {
		tmpl := c.g.Template(ref)
		rep := c.reporter(tmpl)
		seen := make(map[string]source.Span)
		for _, id := range tmpl.TopLevel() {
			n := tmpl.Node(id)
			if n.Kind != ast.KindSectionBlock && n.Kind != ast.KindSectionDirective {
				continue
			}
			if prev, dup := seen[n.Name]; dup {
				diag.ReportWarning(rep, diag.SemaDuplicateSection, n.Span,
					fmt.Sprintf("section '%s' is defined twice; the first definition wins", n.Name)).
					WithNote(prev, "first defined here").
					Emit()
				continue
			}
			seen[n.Name] = n.Span
			defs[ref] = append(defs[ref], sectionDef{name: n.Name, span: n.Span})
		}

		renders[ref] = make(map[string]bool)
		ast.Walk(tmpl.Builder, tmpl.Root, func(_ ast.NodeID, n *ast.Node) bool {
			switch n.Kind {
			case ast.KindRenderDirective:
				renders[ref][n.Name] = true
			case ast.KindRenderBody:
				rendersBody[ref] = true
			}
			return true
		})
	}

	// A layout's slots are filled by whichever entry (the root or a
	// component) reaches it through its own extends chain.
	type slot struct {
		ref ast.TemplateRef
		id  ast.NodeID
	}
	missing := make(map[slot]bool)
	var slots []slot
	for _, entry := range c.g.Order {
		if entry != c.g.Root && c.g.Template(entry).Def == nil {
			continue
		}
		chain := c.g.LayoutChain(entry)
		defined := make(map[string]bool)
		for _, ref := range chain {
			for _, d := range defs[ref] {
				defined[d.name] = true
			}
		}
		for _, ref := range chain {
			tmpl := c.g.Template(ref)
			ast.Walk(tmpl.Builder, tmpl.Root, func(id ast.NodeID, n *ast.Node) bool {
				if n.Kind == ast.KindRenderDirective && !n.Optional && !defined[n.Name] {
					if k := (slot{ref: ref, id: id}); !missing[k] {
						missing[k] = true
						slots = append(slots, k)
					}
				}
				return true
			})
		}
	}

	for _, ref := range c.g.Order {
		tmpl := c.g.Template(ref)
		rep := c.reporter(tmpl)
		chain := c.g.LayoutChain(ref)

		for _, d := range defs[ref] {
			if !anyOf(chain, func(r ast.TemplateRef) bool { return renders[r][d.name] }) {
				diag.ReportWarning(rep, diag.SemaSectionUnused, d.span,
					fmt.Sprintf("section '%s' is never rendered by the layout chain", d.name)).Emit()
			}
		}

		if tmpl.Layout.IsValid() && c.hasBody(tmpl) &&
			!anyOf(c.g.LayoutChain(tmpl.Layout), func(r ast.TemplateRef) bool { return rendersBody[r] }) {
			layout := c.g.Template(tmpl.Layout)
			diag.ReportWarning(rep, diag.SemaBodyNotRendered, tmpl.Node(tmpl.ExtendsNode).Span,
				fmt.Sprintf("layout '%s' never uses @render_body; the content of this template is dropped", layout.Path)).Emit()
		}
	}

	for _, k := range slots {
		tmpl := c.g.Template(k.ref)
		n := tmpl.Node(k.id)
		diag.ReportError(c.reporter(tmpl), diag.SemaSectionUndefined, n.Span,
			fmt.Sprintf("section '%s' is rendered here but no template in the chain defines it", n.Name)).
			WithNote(n.Span, fmt.Sprintf("use @render(\"%s\", optional) for a slot that may stay empty", n.Name)).
			Emit()
	}

	for _, ref := range c.g.LayoutChain(c.g.Root) {
		tmpl := c.g.Template(ref)
		rep := c.reporter(tmpl)
		for _, id := range ast.Collect(tmpl.Builder, tmpl.Root, ast.KindChildContent) {
			diag.ReportWarning(rep, diag.SemaChildrenInPage, tmpl.Node(id).Span,
				"@children outside of a component renders nothing").Emit()
		}
	}
}

// hasBody reports whether tmpl has top-level output besides directives.
func (c *checker) hasBody(tmpl *resolve.Template) bool {
	for _, id := range tmpl.TopLevel() {
		n := tmpl.Node(id)
		if n.Kind.IsDirective() || n.Kind == ast.KindCodeBlock || ast.IsBlank(n) {
			continue
		}
		return true
	}
	return false
}

func anyOf(refs []ast.TemplateRef, pred func(ast.TemplateRef) bool) bool {
	for _, r := range refs {
		if pred(r) {
			return true
		}
	}
	return false
}
