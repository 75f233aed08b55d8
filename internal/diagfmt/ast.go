package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"quill/internal/ast"
	"quill/internal/source"
)

// ASTNodeOutput is the JSON form of one syntax node.
type ASTNodeOutput struct {
	Type     string          `json:"type"`
	Span     source.Span     `json:"span"`
	Text     string          `json:"text,omitempty"`
	Fields   map[string]any  `json:"fields,omitempty"`
	Children []ASTNodeOutput `json:"children,omitempty"`
}

type treeNode struct {
	label    string
	children []*treeNode
}

// FormatASTPretty writes the tree rooted at root with box-drawing guides.
// Spans are shown as line:col ranges when fs is set.
func FormatASTPretty(w io.Writer, b *ast.Builder, root ast.NodeID, fs *source.FileSet) error {
	n := b.Get(root)
	if n == nil {
		return fmt.Errorf("node %d not found", root)
	}
	tree := buildTree(b, root, fs)
	if fs != nil {
		if f := fs.Get(n.Span.File); f != nil {
			tree.label = fmt.Sprintf("%s (span: %s)", f.FormatPath("auto", fs.BaseDir()), formatSpan(n.Span, fs))
		}
	}
	var sb strings.Builder
	sb.WriteString(tree.label + "\n")
	writeChildren(&sb, tree.children, "")
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeChildren(sb *strings.Builder, children []*treeNode, prefix string) {
	for i, c := range children {
		branch, next := "├─ ", "│  "
		if i == len(children)-1 {
			branch, next = "└─ ", "   "
		}
		sb.WriteString(prefix + branch + c.label + "\n")
		writeChildren(sb, c.children, prefix+next)
	}
}

func buildTree(b *ast.Builder, id ast.NodeID, fs *source.FileSet) *treeNode {
	n := b.Get(id)
	if n == nil {
		return &treeNode{label: fmt.Sprintf("<nil %d>", id)}
	}
	t := &treeNode{label: fmt.Sprintf("%s%s (span: %s)", n.Kind, summary(n), formatSpan(n.Span, fs))}
	list := func(label string, ids []ast.NodeID) *treeNode {
		g := &treeNode{label: label}
		for _, c := range ids {
			g.children = append(g.children, buildTree(b, c, fs))
		}
		return g
	}
	for _, a := range n.Attrs {
		label := fmt.Sprintf("attr %s: %s", a.Name, a.Kind)
		if a.Kind != ast.AttrFlag && a.Kind != ast.AttrBlock {
			label += " " + strconv.Quote(a.Value)
		}
		g := list(label, a.Body)
		t.children = append(t.children, g)
	}
	for _, c := range n.Clauses {
		label := c.Kind.String()
		if c.Head != "" {
			label += " " + c.Head
		}
		t.children = append(t.children, list(label, c.Body))
	}
	for _, a := range n.Arms {
		t.children = append(t.children, list("arm "+a.Pattern, a.Body))
	}
	for _, c := range n.Children {
		t.children = append(t.children, buildTree(b, c, fs))
	}
	return t
}

// summary renders the payload fields meaningful for n's kind.
func summary(n *ast.Node) string {
	switch n.Kind {
	case ast.KindText, ast.KindInnerText, ast.KindRaw, ast.KindComment:
		return " " + strconv.Quote(n.Value)
	case ast.KindExtendsDirective:
		return " " + strconv.Quote(n.Path)
	case ast.KindUseDirective:
		return fmt.Sprintf(" %s as %s", strconv.Quote(n.Path), n.Name)
	case ast.KindParamDecl:
		if n.HasDefault {
			return fmt.Sprintf(" %s = {%s}", n.Name, n.Code)
		}
		return " " + n.Name
	case ast.KindRenderDirective:
		if n.Optional {
			return " " + n.Name + " optional"
		}
		return " " + n.Name
	case ast.KindSectionDirective:
		return fmt.Sprintf(" %s = {%s}", n.Name, n.Code)
	case ast.KindSectionBlock:
		return " " + n.Name
	case ast.KindCodeBlock, ast.KindMatchExpression:
		return " {" + n.Code + "}"
	case ast.KindSimpleExpression, ast.KindParenExpression:
		if n.Escaped {
			return " {" + n.Code + "}"
		}
		return " !{" + n.Code + "}"
	case ast.KindComponent:
		if n.SelfClosing {
			return " <" + n.Name + " />"
		}
		return " <" + n.Name + ">"
	}
	return ""
}

// FormatASTJSON writes the tree rooted at root as indented JSON.
func FormatASTJSON(w io.Writer, b *ast.Builder, root ast.NodeID) error {
	if b.Get(root) == nil {
		return fmt.Errorf("node %d not found", root)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(nodeJSON(b, root))
}

func nodeJSON(b *ast.Builder, id ast.NodeID) ASTNodeOutput {
	n := b.Get(id)
	out := ASTNodeOutput{Type: n.Kind.String(), Span: n.Span}
	fields := make(map[string]any)
	set := func(k string, v any, ok bool) {
		if ok {
			fields[k] = v
		}
	}
	set("value", n.Value, n.Value != "")
	set("code", n.Code, n.Code != "")
	set("name", n.Name, n.Name != "")
	set("path", n.Path, n.Path != "" && n.Kind != ast.KindTemplate)
	set("escaped", n.Escaped, n.Kind == ast.KindSimpleExpression || n.Kind == ast.KindParenExpression)
	set("optional", n.Optional, n.Optional)
	set("self_closing", n.SelfClosing, n.SelfClosing)
	if n.Kind == ast.KindTemplate {
		out.Text = n.Path
	}

	list := func(ids []ast.NodeID) []ASTNodeOutput {
		out := make([]ASTNodeOutput, 0, len(ids))
		for _, c := range ids {
			out = append(out, nodeJSON(b, c))
		}
		return out
	}
	for _, a := range n.Attrs {
		out.Children = append(out.Children, ASTNodeOutput{
			Type: "Attr", Span: a.Span, Text: a.Name,
			Fields:   map[string]any{"kind": a.Kind.String(), "value": a.Value},
			Children: list(a.Body),
		})
	}
	for _, c := range n.Clauses {
		out.Children = append(out.Children, ASTNodeOutput{
			Type: "Clause", Span: c.Span, Text: c.Kind.String(),
			Fields:   map[string]any{"head": c.Head},
			Children: list(c.Body),
		})
	}
	for _, a := range n.Arms {
		out.Children = append(out.Children, ASTNodeOutput{
			Type: "Arm", Span: a.Span, Text: a.Pattern, Children: list(a.Body),
		})
	}
	out.Children = append(out.Children, list(n.Children)...)
	if len(fields) > 0 {
		out.Fields = fields
	}
	return out
}

func formatSpan(span source.Span, fs *source.FileSet) string {
	if fs != nil && fs.Get(span.File) != nil {
		start, end := fs.Resolve(span)
		return fmt.Sprintf("%d:%d-%d:%d", start.Line, start.Col, end.Line, end.Col)
	}
	return fmt.Sprintf("span(%d-%d)", span.Start, span.End)
}
