package sema

import (
	"fmt"
	"slices"
	"strings"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/hostexpr"
	"quill/internal/parser"
	"quill/internal/resolve"
	"quill/internal/source"
)

// walker checks one template. locals is a stack of names bound by loops
// and code blocks; loops counts the enclosing loop bodies of the current
// routine.
type walker struct {
	c      *checker
	t      *resolve.Template
	rep    diag.Reporter
	params map[string]bool
	locals []string
	loops  int
}

func newWalker(c *checker, tmpl *resolve.Template) *walker {
	w := &walker{c: c, t: tmpl, rep: c.reporter(tmpl), params: make(map[string]bool)}
	for _, p := range tmpl.Def.Params {
		w.params[p.Name] = true
	}
	return w
}

// declarations checks @param declarations for duplicates.
func (w *walker) declarations() {
	first := make(map[string]source.Span)
	for _, id := range w.t.TopLevel() {
		n := w.t.Node(id)
		if n.Kind != ast.KindParamDecl {
			continue
		}
		if prev, dup := first[n.Name]; dup {
			diag.ReportError(w.rep, diag.SemaDuplicateParam, n.Span,
				fmt.Sprintf("parameter '%s' is declared twice", n.Name)).
				WithNote(prev, "first declared here").
				Emit()
			continue
		}
		first[n.Name] = n.Span
	}
}

func (w *walker) list(ids []ast.NodeID) {
	mark := len(w.locals)
	for _, id := range ids {
		w.node(id)
	}
	w.locals = w.locals[:mark]
}

// routine walks a body that runs as its own render routine (component
// child content, block-valued attributes, sections): loop control does
// not cross into it.
func (w *walker) routine(ids []ast.NodeID) {
	saved := w.loops
	w.loops = 0
	w.list(ids)
	w.loops = saved
}

func (w *walker) node(id ast.NodeID) {
	n := w.t.Node(id)
	switch n.Kind {
	case ast.KindTemplate:
		w.list(n.Children)
	case ast.KindText, ast.KindInnerText, ast.KindComment, ast.KindRaw:
	case ast.KindExtendsDirective, ast.KindUseDirective:
	case ast.KindRenderDirective, ast.KindRenderBody, ast.KindChildContent:
	case ast.KindParamDecl:
		if n.HasDefault {
			w.expr(n.Code, n.CodeSpan)
		}
	case ast.KindSectionDirective:
		w.expr(n.Code, n.CodeSpan)
	case ast.KindSectionBlock:
		w.routine(n.Children)
	case ast.KindCodeBlock:
		w.codeBlock(n)
	case ast.KindSimpleExpression, ast.KindParenExpression:
		w.expr(n.Code, n.CodeSpan)
	case ast.KindConditionalOrLoop:
		w.clauses(n)
	case ast.KindMatchExpression:
		w.match(n)
	case ast.KindComponent:
		w.component(n)
	case ast.KindContinue, ast.KindBreak:
		if w.loops == 0 {
			word := "@continue"
			if n.Kind == ast.KindBreak {
				word = "@break"
			}
			diag.ReportError(w.rep, diag.SemaLoopControlOutside, n.Span,
				word+" outside of a @for or @while body").Emit()
		}
	}
}

func (w *walker) clauses(n *ast.Node) {
	for _, cl := range n.Clauses {
		switch cl.Kind {
		case ast.ClauseElse:
			w.list(cl.Body)
		case ast.ClauseFor:
			mark := len(w.locals)
			if head, ok := hostexpr.SplitForHead(cl.Head); ok {
				if w.check(w.c.opts.Checker.CheckExpr, head.Iter, cl.HeadSpan) {
					w.fields(head.Iter, cl.HeadSpan)
				}
				w.locals = append(w.locals, head.Vars...)
			} else {
				w.check(w.c.opts.Checker.CheckForHead, cl.Head, cl.HeadSpan)
			}
			w.loop(cl.Body)
			w.locals = w.locals[:mark]
		case ast.ClauseWhile:
			w.expr(cl.Head, cl.HeadSpan)
			w.loop(cl.Body)
		default:
			w.expr(cl.Head, cl.HeadSpan)
			w.list(cl.Body)
		}
	}
}

func (w *walker) loop(body []ast.NodeID) {
	w.loops++
	w.list(body)
	w.loops--
}

func (w *walker) match(n *ast.Node) {
	w.expr(n.Code, n.CodeSpan)
	for _, arm := range n.Arms {
		w.check(w.c.opts.Checker.CheckPattern, arm.Pattern, arm.PatternSpan)
		w.list(arm.Body)
	}
}

func (w *walker) codeBlock(n *ast.Node) {
	if !w.check(w.c.opts.Checker.CheckStmt, n.Code, n.CodeSpan) {
		return
	}
	for _, stmt := range hostexpr.SplitStatements(n.Code) {
		s := hostexpr.ParseStatement(stmt)
		if s.Kind == hostexpr.StmtAssign && !w.bound(s.Name) {
			// A plain assignment to an unknown name introduces it.
			w.locals = append(w.locals, s.Name)
		}
		w.fields(s.Expr, n.CodeSpan)
		if s.Kind == hostexpr.StmtLet {
			w.locals = append(w.locals, s.Name)
		}
	}
}

// expr runs the plausibility and field checks on one expression.
func (w *walker) expr(code string, sp source.Span) {
	if w.check(w.c.opts.Checker.CheckExpr, code, sp) {
		w.fields(code, sp)
	}
}

func (w *walker) check(fn func(string) error, code string, sp source.Span) bool {
	if err := fn(code); err != nil {
		diag.ReportCaution(w.rep, diag.SemaImplausibleExpr, sp,
			fmt.Sprintf("'%s' does not look like a valid expression: %v", oneLine(code), err)).Emit()
		return false
	}
	return true
}

func (w *walker) fields(code string, sp source.Span) {
	if w.c.fields == nil {
		return
	}
	for _, root := range hostexpr.FieldRoots(code) {
		if w.c.fields[root] || w.bound(root) {
			continue
		}
		diag.ReportCaution(w.rep, diag.SemaUnknownField, sp,
			fmt.Sprintf("'%s' is not a declared context field", root)).Emit()
	}
}

func (w *walker) bound(name string) bool {
	return w.params[name] || slices.Contains(w.locals, name)
}

func (w *walker) component(n *ast.Node) {
	def, use, ok := w.c.g.Lookup(w.t.Ref, n.Name)
	if use != nil {
		w.c.used[use] = true
	}
	if !ok {
		w.missingComponent(n)
		w.attrs(n, nil)
		w.routine(n.Children)
		return
	}

	supplied := w.attrs(n, def)
	for _, p := range def.Params {
		if p.HasDefault || supplied[p.Name] {
			continue
		}
		diag.ReportError(w.rep, diag.SemaMissingParam, n.NameSpan,
			fmt.Sprintf("component '%s' requires parameter '%s'", n.Name, p.Name)).
			WithNote(p.Span, "declared here").
			Emit()
	}

	hasBody := w.t.HasContent(n.Children)
	switch {
	case hasBody && !def.UsesChildren:
		diag.ReportWarning(w.rep, diag.SemaBodyUnused, n.NameSpan,
			fmt.Sprintf("component '%s' never renders @children; the body passed here is unused", n.Name)).Emit()
	case !hasBody && def.UsesChildren:
		diag.ReportWarning(w.rep, diag.SemaExpectedBody, n.NameSpan,
			fmt.Sprintf("component '%s' renders @children but no body is passed", n.Name)).Emit()
	}
	w.routine(n.Children)
}

// attrs checks the attributes of a component call; def is nil when the
// component did not resolve. It returns the supplied parameter names.
func (w *walker) attrs(n *ast.Node, def *resolve.ComponentDef) map[string]bool {
	supplied := make(map[string]bool, len(n.Attrs))
	first := make(map[string]source.Span, len(n.Attrs))
	for _, a := range n.Attrs {
		if prev, dup := first[a.Name]; dup {
			diag.ReportError(w.rep, diag.SemaDuplicateAttribute, a.NameSpan,
				fmt.Sprintf("attribute '%s' is given twice", a.Name)).
				WithNote(prev, "first given here").
				Emit()
		} else {
			first[a.Name] = a.NameSpan
		}
		supplied[a.Name] = true
		if def != nil {
			if _, declared := def.Param(a.Name); !declared {
				diag.ReportWarning(w.rep, diag.SemaUnknownParam, a.NameSpan,
					fmt.Sprintf("component '%s' has no parameter '%s'", n.Name, a.Name)).Emit()
			}
		}
		switch a.Kind {
		case ast.AttrExpr:
			w.expr(a.Value, a.ValueSpan)
		case ast.AttrBlock:
			w.routine(a.Body)
		}
	}
	return supplied
}

func (w *walker) missingComponent(n *ast.Node) {
	b := diag.ReportError(w.rep, diag.SemaMissingComponent, n.NameSpan,
		fmt.Sprintf("missing component '%s': no @use or layout import provides it", n.Name))
	aliases := w.c.g.Aliases(w.t.Ref)
	if s := parser.Closest(n.Name, aliases); s != "" {
		b.WithNote(n.NameSpan, fmt.Sprintf("did you mean '%s'?", s))
	} else if len(aliases) > 0 {
		b.WithNote(n.NameSpan, "components in scope: "+strings.Join(aliases, ", "))
	}
	b.Emit()
}

func oneLine(code string) string {
	code = strings.Join(strings.Fields(code), " ")
	if len(code) > 60 {
		code = code[:57] + "..."
	}
	return code
}
