package codegen

import (
	"fmt"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/plan"
	"quill/internal/resolve"
)

// lower turns a node list of tmpl into instructions. Composition
// directives produce nothing; their effect is applied by compose and
// sections.
func (l *lowerer) lower(tmpl *resolve.Template, ids []ast.NodeID) []plan.Instr {
	out := make([]plan.Instr, 0, len(ids))
	for _, id := range ids {
		out = l.lowerNode(out, tmpl, tmpl.Node(id))
	}
	return out
}

func (l *lowerer) lowerNode(out []plan.Instr, tmpl *resolve.Template, n *ast.Node) []plan.Instr {
	switch n.Kind {
	case ast.KindTemplate:
		for _, id := range n.Children {
			out = l.lowerNode(out, tmpl, tmpl.Node(id))
		}
	case ast.KindText, ast.KindInnerText, ast.KindRaw:
		out = append(out, plan.Instr{Op: plan.OpText, Text: n.Value, Span: n.Span})
	case ast.KindComment:
	case ast.KindExtendsDirective, ast.KindUseDirective, ast.KindParamDecl,
		ast.KindSectionDirective, ast.KindSectionBlock:
	case ast.KindCodeBlock:
		out = append(out, plan.Instr{Op: plan.OpCode, Code: n.Code, Span: n.Span})
	case ast.KindSimpleExpression, ast.KindParenExpression:
		out = append(out, plan.Instr{Op: plan.OpExpr, Code: n.Code, Escaped: n.Escaped, Span: n.Span})
	case ast.KindConditionalOrLoop:
		out = append(out, l.lowerControl(tmpl, n))
	case ast.KindMatchExpression:
		in := plan.Instr{Op: plan.OpMatch, Code: n.Code, Span: n.Span}
		for _, arm := range n.Arms {
			in.Arms = append(in.Arms, plan.Arm{Pattern: arm.Pattern, Body: l.lower(tmpl, arm.Body)})
		}
		out = append(out, in)
	case ast.KindComponent:
		out = l.lowerComponent(out, tmpl, n)
	case ast.KindChildContent:
		out = append(out, plan.Instr{Op: plan.OpInvokeChildren, Span: n.Span})
	case ast.KindRenderDirective:
		out = append(out, plan.Instr{Op: plan.OpSplice, Name: n.Name, Optional: n.Optional, Span: n.Span})
	case ast.KindRenderBody:
		out = append(out, plan.Instr{Op: plan.OpSplice, Name: plan.BodySection, Optional: true, Span: n.Span})
	case ast.KindContinue:
		out = append(out, plan.Instr{Op: plan.OpContinue, Span: n.Span})
	case ast.KindBreak:
		out = append(out, plan.Instr{Op: plan.OpBreak, Span: n.Span})
	default:
		panic(fmt.Sprintf("codegen: unhandled node kind %s", n.Kind))
	}
	return out
}

func (l *lowerer) lowerControl(tmpl *resolve.Template, n *ast.Node) plan.Instr {
	in := plan.Instr{Op: plan.OpIf, Span: n.Span}
	for _, cl := range n.Clauses {
		var kind plan.ClauseKind
		switch cl.Kind {
		case ast.ClauseIf:
			kind = plan.ClauseIf
		case ast.ClauseElseIf:
			kind = plan.ClauseElseIf
		case ast.ClauseElse:
			kind = plan.ClauseElse
		case ast.ClauseFor:
			kind, in.Op = plan.ClauseFor, plan.OpFor
		case ast.ClauseWhile:
			kind, in.Op = plan.ClauseWhile, plan.OpWhile
		}
		in.Clauses = append(in.Clauses, plan.Clause{Kind: kind, Head: cl.Head, Body: l.lower(tmpl, cl.Body)})
	}
	return in
}

// lowerComponent emits the bindings of a call in attribute order, then
// the child content binding (empty for a self-closing or blank call), then
// the invocation.
func (l *lowerer) lowerComponent(out []plan.Instr, tmpl *resolve.Template, n *ast.Node) []plan.Instr {
	def, _, ok := l.g.Lookup(tmpl.Ref, n.Name)
	if !ok {
		diag.ReportError(diag.ChainReporter{Next: l.rep, Outer: tmpl.Chain}, diag.GenUnresolvedComponent, n.NameSpan,
			fmt.Sprintf("component '%s' is not resolved", n.Name)).Emit()
		return out
	}
	for _, a := range n.Attrs {
		bind := plan.Instr{Op: plan.OpBind, Name: a.Name, Span: a.Span}
		switch a.Kind {
		case ast.AttrString:
			bind.Bind, bind.Text = plan.BindString, a.Value
		case ast.AttrNumber:
			bind.Bind, bind.Text = plan.BindNumber, a.Value
		case ast.AttrFlag:
			bind.Bind = plan.BindFlag
		case ast.AttrExpr:
			bind.Bind, bind.Code = plan.BindExpr, a.Value
		case ast.AttrBlock:
			bind.Bind, bind.Body = plan.BindBlock, l.lower(tmpl, a.Body)
		}
		out = append(out, bind)
	}
	children := plan.Instr{Op: plan.OpBindChildren, Span: n.Span}
	if tmpl.HasContent(n.Children) {
		children.Body = l.lower(tmpl, n.Children)
	}
	out = append(out, children)
	return append(out, plan.Instr{Op: plan.OpInvoke, Name: n.Name, Unit: def.Unit, Span: n.Span})
}
