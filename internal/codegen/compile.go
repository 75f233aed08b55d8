package codegen

import (
	"context"
	"fmt"
	"slices"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/plan"
	"quill/internal/resolve"
	"quill/internal/source"
	"quill/internal/trace"
)

type Options struct {
	// MaxChain bounds layout composition; zero means resolve.DefaultMaxChain.
	MaxChain int
	// MaxDiagnostics caps the returned bag; zero means unbounded.
	MaxDiagnostics int
}

// Compile lowers every template of g and composes the root unit. The
// program is nil when lowering reported an error.
func Compile(ctx context.Context, g *resolve.Graph, opts Options) (*plan.Program, *diag.Bag) {
	span, ctx := trace.Start(ctx, trace.ScopePass, "codegen")
	defer span.End("")

	if opts.MaxChain <= 0 {
		opts.MaxChain = resolve.DefaultMaxChain
	}
	bag := diag.NewBag(opts.MaxDiagnostics)
	l := &lowerer{
		g:       g,
		opts:    opts,
		rep:     diag.BagReporter{Bag: bag},
		streams: make(map[ast.TemplateRef][]plan.Instr, len(g.Order)),
	}

	prog := plan.NewProgram()
	prog.Files = make(map[source.FileID]string, len(g.Order))
	for _, ref := range g.Order {
		tmpl := g.Template(ref)
		trace.Point(trace.WithTemplate(ctx, tmpl.Path), trace.ScopeTemplate, "lower", "")
		prog.Files[tmpl.File] = tmpl.Path
		l.streams[ref] = l.lower(tmpl, tmpl.TopLevel())
	}

	for _, ref := range g.Order {
		tmpl := g.Template(ref)
		unit := &plan.Unit{
			ID:           tmpl.Unit,
			Path:         tmpl.Path,
			UsesChildren: tmpl.Def.UsesChildren,
		}
		for _, p := range tmpl.Def.Params {
			unit.Params = append(unit.Params, plan.Param{Name: p.Name, Default: p.Default, HasDefault: p.HasDefault})
		}
		unit.SortParams()

		if tmpl.Layout.IsValid() {
			unit.Instrs = l.compose(tmpl)
			unit.Sections = l.sections(tmpl)
		} else {
			unit.Instrs = l.streams[ref]
		}
		unit.Instrs = mergeText(unit.Instrs)
		unit.StaticSize = plan.StaticSize(unit.Instrs)
		for name, body := range unit.Sections {
			body = mergeText(body)
			unit.Sections[name] = body
			unit.StaticSize += plan.StaticSize(body)
		}

		prog.Units[unit.ID] = unit
		prog.Order = append(prog.Order, unit.ID)
	}
	prog.Root = g.RootTemplate().Unit

	span.Set("units", fmt.Sprint(len(prog.Units)))
	if bag.HasErrors() {
		return nil, bag
	}
	return prog, bag
}

type lowerer struct {
	g       *resolve.Graph
	opts    Options
	rep     diag.Reporter
	streams map[ast.TemplateRef][]plan.Instr
}

// compose returns the stream of tmpl with its layout chain applied: the
// outermost layout's stream, each body slot holding the next inner
// template's stream.
func (l *lowerer) compose(tmpl *resolve.Template) []plan.Instr {
	chain := l.g.LayoutChain(tmpl.Ref)
	if len(chain) > l.opts.MaxChain {
		diag.ReportError(diag.ChainReporter{Next: l.rep, Outer: tmpl.Chain}, diag.GenSpliceDepth,
			tmpl.Node(tmpl.ExtendsNode).Span,
			fmt.Sprintf("layout chain of '%s' has %d levels (limit %d)", tmpl.Path, len(chain), l.opts.MaxChain)).Emit()
		return nil
	}
	out := l.streams[chain[len(chain)-1]]
	for i := len(chain) - 2; i >= 0; i-- {
		out = spliceBody(out, l.streams[chain[i]])
	}
	return out
}

// sections collects the section definitions of tmpl's layout chain.
// Within one template the first definition wins; across the chain the
// innermost template wins.
func (l *lowerer) sections(tmpl *resolve.Template) map[string][]plan.Instr {
	out := make(map[string][]plan.Instr)
	chain := l.g.LayoutChain(tmpl.Ref)
	for i := len(chain) - 1; i >= 0; i-- {
		t := l.g.Template(chain[i])
		own := make(map[string]bool)
		for _, id := range t.TopLevel() {
			n := t.Node(id)
			if n.Kind != ast.KindSectionBlock && n.Kind != ast.KindSectionDirective {
				continue
			}
			if own[n.Name] {
				continue
			}
			own[n.Name] = true
			if n.Kind == ast.KindSectionBlock {
				out[n.Name] = l.lower(t, n.Children)
			} else {
				out[n.Name] = []plan.Instr{{Op: plan.OpExpr, Code: n.Code, Escaped: true, Span: n.CodeSpan}}
			}
		}
	}
	return out
}

// spliceBody replaces every body slot in stream, at any depth, with body.
func spliceBody(stream, body []plan.Instr) []plan.Instr {
	out := make([]plan.Instr, 0, len(stream)+len(body))
	for _, in := range stream {
		if in.Op == plan.OpSplice && in.Name == plan.BodySection {
			out = append(out, body...)
			continue
		}
		if len(in.Body) > 0 {
			in.Body = spliceBody(in.Body, body)
		}
		if len(in.Clauses) > 0 {
			in.Clauses = slices.Clone(in.Clauses)
			for i := range in.Clauses {
				in.Clauses[i].Body = spliceBody(in.Clauses[i].Body, body)
			}
		}
		if len(in.Arms) > 0 {
			in.Arms = slices.Clone(in.Arms)
			for i := range in.Arms {
				in.Arms[i].Body = spliceBody(in.Arms[i].Body, body)
			}
		}
		out = append(out, in)
	}
	return out
}

// mergeText joins adjacent literals, recursively.
func mergeText(instrs []plan.Instr) []plan.Instr {
	out := make([]plan.Instr, 0, len(instrs))
	for _, in := range instrs {
		if in.Op == plan.OpText {
			if in.Text == "" {
				continue
			}
			if n := len(out); n > 0 && out[n-1].Op == plan.OpText {
				prev := &out[n-1]
				prev.Text += in.Text
				if prev.Span.File == in.Span.File && in.Span.End > prev.Span.End {
					prev.Span.End = in.Span.End
				}
				continue
			}
		}
		in.Body = mergeText(in.Body)
		for i := range in.Clauses {
			in.Clauses[i].Body = mergeText(in.Clauses[i].Body)
		}
		for i := range in.Arms {
			in.Arms[i].Body = mergeText(in.Arms[i].Body)
		}
		out = append(out, in)
	}
	return out
}
