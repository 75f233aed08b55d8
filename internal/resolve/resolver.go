package resolve

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/parser"
	"quill/internal/plan"
	"quill/internal/project/dag"
	"quill/internal/source"
	"quill/internal/trace"
)

// DefaultMaxChain bounds the extends/use nesting of one closure.
const DefaultMaxChain = 64

var (
	ErrNotFound     = errors.New("template not found")
	ErrCycle        = errors.New("circular dependency")
	ErrChainTooLong = errors.New("dependency chain too long")
	ErrSyntax       = errors.New("syntax errors")
	ErrLoad         = errors.New("template load failed")
)

type Options struct {
	// Extension is appended to directive paths without one.
	Extension string
	MaxChain  int
	Parser    parser.Options
}

// Resolver owns the state of resolving one root template. It must not be
// shared between goroutines; parallel builds give every root its own.
type Resolver struct {
	loader Loader
	fs     *source.FileSet
	rep    diag.Reporter
	opts   Options

	graph       *Graph
	stack       []string
	sites       []source.Span
	syntaxError bool
}

func New(loader Loader, fs *source.FileSet, rep diag.Reporter, opts Options) *Resolver {
	if opts.MaxChain <= 0 {
		opts.MaxChain = DefaultMaxChain
	}
	return &Resolver{loader: loader, fs: fs, rep: rep, opts: opts}
}

// Resolve loads rootPath and its whole closure. On a fatal resolution
// error the returned error wraps one of the package sentinels and the
// diagnostic has already been reported. A graph with syntax errors is
// still returned, together with an error wrapping ErrSyntax.
func (r *Resolver) Resolve(ctx context.Context, rootPath string) (*Graph, error) {
	span, ctx := trace.Start(ctx, trace.ScopePass, "resolve")
	defer span.End("")

	root, err := Canonicalize("", rootPath, r.opts.Extension)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	r.graph = newGraph(r.fs)
	ref, err := r.load(ctx, root, source.Span{}, false)
	if err != nil {
		return nil, err
	}
	r.graph.Root = ref
	r.graph.Order = r.order()
	span.Set("templates", fmt.Sprint(r.graph.Templates.Len()))

	if r.syntaxError {
		return r.graph, fmt.Errorf("%s: %w", rootPath, ErrSyntax)
	}
	return r.graph, nil
}

func (r *Resolver) load(ctx context.Context, p string, site source.Span, hasSite bool) (ast.TemplateRef, error) {
	if err := ctx.Err(); err != nil {
		return ast.NoTemplateRef, err
	}
	if i := indexOf(r.stack, p); i >= 0 {
		cycle := append(append([]string(nil), r.stack[i:]...), p)
		text := strings.Join(cycle, " -> ")
		r.fatal(diag.ResCycle, site, hasSite, "circular dependency: "+text)
		return ast.NoTemplateRef, fmt.Errorf("%w: %s", ErrCycle, text)
	}
	if ref, ok := r.graph.byPath[p]; ok {
		return ref, nil
	}
	if len(r.stack) >= r.opts.MaxChain {
		r.fatal(diag.ResChainTooLong, site, hasSite,
			fmt.Sprintf("dependency chain deeper than %d templates while loading %q", r.opts.MaxChain, p))
		return ast.NoTemplateRef, fmt.Errorf("%w: %s", ErrChainTooLong, p)
	}

	raw, err := r.loader.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.fatal(diag.ResFileNotFound, site, hasSite, fmt.Sprintf("template %q not found", p))
			return ast.NoTemplateRef, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		r.fatal(diag.ResLoadError, site, hasSite, fmt.Sprintf("failed to load %q: %v", p, err))
		return ast.NoTemplateRef, fmt.Errorf("%w: %s: %w", ErrLoad, p, err)
	}

	tspan, ctx := trace.Start(trace.WithTemplate(ctx, p), trace.ScopeTemplate, "load")
	defer tspan.End("")

	chain := append([]source.Span(nil), r.sites...)
	fileID := r.fs.AddSource(p, raw)
	popts := r.opts.Parser
	popts.Reporter = diag.ChainReporter{Next: r.rep, Outer: chain}
	res := parser.ParseFile(r.fs, fileID, popts)
	if res.Errors > 0 || res.Fatal {
		r.syntaxError = true
	}
	if res.Fatal {
		return ast.NoTemplateRef, fmt.Errorf("%s: %w", p, ErrSyntax)
	}

	ref := ast.TemplateRef(r.graph.Templates.Allocate(Template{
		Path:    p,
		File:    fileID,
		Unit:    plan.UnitIDFor(p),
		Builder: res.Builder,
		Root:    res.Root,
		Chain:   chain,
		scope:   make(map[string]*UseRecord),
	}))
	r.graph.byPath[p] = ref
	tmpl := r.graph.Template(ref)
	tmpl.Ref = ref

	r.stack = append(r.stack, p)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	if err := r.resolveDirectives(ctx, ref); err != nil {
		return ast.NoTemplateRef, err
	}
	r.define(r.graph.Template(ref))
	return ref, nil
}

// resolveDirectives follows the composition directives of one template.
// Only top-level directives count; the parser already rejected others.
func (r *Resolver) resolveDirectives(ctx context.Context, ref ast.TemplateRef) error {
	for _, id := range r.graph.Template(ref).TopLevel() {
		// The arena may grow while loading, so re-fetch the template.
		tmpl := r.graph.Template(ref)
		n := tmpl.Node(id)
		switch n.Kind {
		case ast.KindExtendsDirective:
			if tmpl.Layout.IsValid() {
				prev := tmpl.Node(tmpl.ExtendsNode)
				diag.ReportError(r.chained(tmpl), diag.ResMultipleExtends, n.Span,
					"a template can extend only one layout").
					WithNote(prev.Span, "first @extends here").
					Emit()
				continue
			}
			target, err := r.follow(ctx, ref, id)
			if err != nil {
				return err
			}
			tmpl = r.graph.Template(ref)
			tmpl.Layout = target
			tmpl.ExtendsNode = id
		case ast.KindUseDirective:
			target, err := r.follow(ctx, ref, id)
			if err != nil {
				return err
			}
			tmpl = r.graph.Template(ref)
			use := &UseRecord{
				Alias:  n.Name,
				Path:   r.graph.Template(target).Path,
				Unit:   r.graph.Template(target).Unit,
				Target: target,
				Node:   id,
				Span:   n.Span,
			}
			tmpl.Uses = append(tmpl.Uses, use)
			if _, dup := tmpl.scope[use.Alias]; !dup {
				tmpl.scope[use.Alias] = use
			}
		}
	}
	return nil
}

// follow loads the file named by an extends/use node and links the node.
func (r *Resolver) follow(ctx context.Context, from ast.TemplateRef, id ast.NodeID) (ast.TemplateRef, error) {
	tmpl := r.graph.Template(from)
	n := tmpl.Node(id)
	target, err := Canonicalize(tmpl.Path, n.Path, r.opts.Extension)
	if err != nil {
		diag.ReportError(r.chained(tmpl), diag.ResFileNotFound, n.PathSpan, err.Error()).Emit()
		return ast.NoTemplateRef, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	r.sites = append(r.sites, n.Span)
	ref, err := r.load(ctx, target, n.Span, true)
	r.sites = r.sites[:len(r.sites)-1]
	if err != nil {
		return ast.NoTemplateRef, err
	}
	n.Target = ref
	return ref, nil
}

// define builds the ComponentDef of a fully resolved template.
func (r *Resolver) define(tmpl *Template) {
	def := &ComponentDef{
		Path:     tmpl.Path,
		Unit:     tmpl.Unit,
		Template: tmpl.Ref,
	}
	for _, id := range tmpl.TopLevel() {
		if n := tmpl.Node(id); n.Kind == ast.KindParamDecl {
			def.Params = append(def.Params, ParamDef{
				Name:       n.Name,
				Default:    n.Code,
				HasDefault: n.HasDefault,
				Span:       n.Span,
			})
		}
	}
	ast.Walk(tmpl.Builder, tmpl.Root, func(_ ast.NodeID, n *ast.Node) bool {
		if n.Kind == ast.KindChildContent {
			def.UsesChildren = true
		}
		return !def.UsesChildren
	})
	tmpl.Def = def
	r.graph.Components[tmpl.Path] = def
}

// order toposorts the closure with dependencies first.
func (r *Resolver) order() []ast.TemplateRef {
	names := make([]string, 0, len(r.graph.byPath))
	for p := range r.graph.byPath {
		names = append(names, p)
	}
	idx := dag.BuildIndex(names)
	g := dag.NewGraph(idx)
	for _, tmpl := range r.graph.Templates.Slice() {
		from := idx.NameToID[tmpl.Path]
		g.MarkPresent(from)
		if tmpl.Layout.IsValid() {
			g.AddEdge(from, idx.NameToID[r.graph.Template(tmpl.Layout).Path])
		}
		for _, use := range tmpl.Uses {
			g.AddEdge(from, idx.NameToID[use.Path])
		}
	}
	topo := dag.ToposortKahn(g)
	out := make([]ast.TemplateRef, 0, len(names))
	for _, name := range idx.Names(topo.Reversed()) {
		out = append(out, r.graph.byPath[name])
	}
	return out
}

func (r *Resolver) chained(tmpl *Template) diag.Reporter {
	return diag.ChainReporter{Next: r.rep, Outer: tmpl.Chain}
}

func (r *Resolver) fatal(code diag.Code, site source.Span, hasSite bool, msg string) {
	if !hasSite {
		return
	}
	outer := r.sites[:len(r.sites)-1]
	diag.ReportError(diag.ChainReporter{Next: r.rep, Outer: outer}, code, site, msg).Emit()
}

func indexOf(stack []string, p string) int {
	for i, s := range stack {
		if s == p {
			return i
		}
	}
	return -1
}
