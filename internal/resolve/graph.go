package resolve

import (
	"crypto/sha256"
	"slices"

	"quill/internal/ast"
	"quill/internal/plan"
	"quill/internal/project"
	"quill/internal/source"
)

// ParamDef is a declared component parameter; Default is host code.
type ParamDef struct {
	Name       string
	Default    string
	HasDefault bool
	Span       source.Span
}

// ComponentDef describes one template file used as a component. There is
// exactly one per canonical path, whatever aliases refer to it.
type ComponentDef struct {
	Alias        string // alias of the first import
	Path         string
	Unit         plan.UnitID
	Params       []ParamDef
	UsesChildren bool
	Template     ast.TemplateRef
}

// Param looks up a declared parameter.
func (d *ComponentDef) Param(name string) (ParamDef, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamDef{}, false
}

// UseRecord is one @use directive after resolution.
type UseRecord struct {
	Alias  string
	Path   string
	Unit   plan.UnitID
	Target ast.TemplateRef
	Node   ast.NodeID
	Span   source.Span
}

// Template is one resolved file.
type Template struct {
	Ref     ast.TemplateRef
	Path    string // canonical
	File    source.FileID
	Unit    plan.UnitID
	Builder *ast.Builder
	Root    ast.NodeID

	Layout      ast.TemplateRef
	ExtendsNode ast.NodeID
	Uses        []*UseRecord
	Def         *ComponentDef

	// Chain holds the directive sites that first reached this template,
	// outermost first. Empty for the root.
	Chain []source.Span

	scope map[string]*UseRecord
}

// Node returns a node of this template.
func (t *Template) Node(id ast.NodeID) *ast.Node {
	return t.Builder.Get(id)
}

// TopLevel returns the root's children.
func (t *Template) TopLevel() []ast.NodeID {
	return t.Builder.Get(t.Root).Children
}

// HasContent reports whether any of ids produces visible output.
func (t *Template) HasContent(ids []ast.NodeID) bool {
	for _, id := range ids {
		if !ast.IsBlank(t.Node(id)) {
			return true
		}
	}
	return false
}

// Graph is the resolved dependency closure of one root template.
type Graph struct {
	FS        *source.FileSet
	Root      ast.TemplateRef
	Templates *ast.Arena[Template]
	// Components is the unit table keyed by canonical path.
	Components map[string]*ComponentDef
	// Order lists templates callee first; the root is last.
	Order []ast.TemplateRef

	byPath map[string]ast.TemplateRef
}

func newGraph(fs *source.FileSet) *Graph {
	return &Graph{
		FS:         fs,
		Templates:  ast.NewArena[Template](8),
		Components: make(map[string]*ComponentDef),
		byPath:     make(map[string]ast.TemplateRef),
	}
}

// Template returns the template for ref, or nil.
func (g *Graph) Template(ref ast.TemplateRef) *Template {
	return g.Templates.Get(uint32(ref))
}

// RootTemplate returns the entry template.
func (g *Graph) RootTemplate() *Template {
	return g.Template(g.Root)
}

// ByPath finds a template by canonical path.
func (g *Graph) ByPath(p string) (*Template, bool) {
	ref, ok := g.byPath[p]
	if !ok {
		return nil, false
	}
	return g.Template(ref), true
}

// LayoutChain returns ref followed by its layouts, innermost first.
func (g *Graph) LayoutChain(ref ast.TemplateRef) []ast.TemplateRef {
	var chain []ast.TemplateRef
	for ref.IsValid() && !slices.Contains(chain, ref) {
		chain = append(chain, ref)
		ref = g.Template(ref).Layout
	}
	return chain
}

// Lookup resolves a component alias as seen from the template at from: its
// own imports first, then those of its layouts.
func (g *Graph) Lookup(from ast.TemplateRef, alias string) (*ComponentDef, *UseRecord, bool) {
	for _, ref := range g.LayoutChain(from) {
		t := g.Template(ref)
		if use, ok := t.scope[alias]; ok {
			tgt := g.Template(use.Target)
			if tgt == nil || tgt.Def == nil {
				return nil, use, false
			}
			return tgt.Def, use, true
		}
	}
	return nil, nil, false
}

// Aliases lists every alias visible from the template at from, sorted.
func (g *Graph) Aliases(from ast.TemplateRef) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, ref := range g.LayoutChain(from) {
		for alias := range g.Template(ref).scope {
			if _, dup := seen[alias]; dup {
				continue
			}
			seen[alias] = struct{}{}
			out = append(out, alias)
		}
	}
	slices.Sort(out)
	return out
}

// Fingerprint hashes every path and file content of the closure. It keys
// the driver's plan cache.
func (g *Graph) Fingerprint() project.Digest {
	paths := make([]string, 0, len(g.byPath))
	for p := range g.byPath {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	h := sha256.New()
	deps := make([]project.Digest, 0, len(paths))
	for _, p := range paths {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
		if f := g.FS.Get(g.Template(g.byPath[p]).File); f != nil {
			deps = append(deps, f.Hash)
		}
	}
	var names project.Digest
	copy(names[:], h.Sum(nil))
	return project.Combine(names, deps...)
}
