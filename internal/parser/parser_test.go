package parser

import (
	"strings"
	"testing"

	"quill/internal/ast"
	"quill/internal/diag"
)

func TestTextCollapsesDoubledMarkers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a @@ b @@@@ c", "a @ b @@ c"},
		{"me@@example.com", "me@example.com"},
		{"@@", "@"},
		{"{ not a block }", "{ not a block }"},
	}
	for _, tt := range tests {
		_, ns := parseOK(t, tt.in)
		expectKinds(t, ns, ast.KindText)
		if ns[0].Value != tt.want {
			t.Errorf("%q: want %q got %q", tt.in, tt.want, ns[0].Value)
		}
	}
}

func TestOddMarkerRunEndsInExpression(t *testing.T) {
	_, ns := parseOK(t, "x@@@y")
	expectKinds(t, ns, ast.KindText, ast.KindSimpleExpression)
	if ns[0].Value != "x@" || ns[1].Code != "y" {
		t.Fatalf("unexpected nodes %q %q", ns[0].Value, ns[1].Code)
	}
}

func TestSimpleExpressions(t *testing.T) {
	res, ns := parseOK(t, "Hi @name")
	expectKinds(t, ns, ast.KindText, ast.KindSimpleExpression)
	e := ns[1]
	if e.Code != "name" || !e.Escaped {
		t.Fatalf("unexpected expression %+v", e)
	}
	if e.Span.Start != 3 || e.Span.End != 8 || e.CodeSpan.Start != 4 {
		t.Fatalf("unexpected spans %v %v", e.Span, e.CodeSpan)
	}
	_ = res

	_, ns = parseOK(t, "Hi @!name")
	if ns[1].Escaped {
		t.Fatalf("raw marker must disable escaping")
	}

	_, ns = parseOK(t, "Hi @user.name.")
	expectKinds(t, ns, ast.KindText, ast.KindSimpleExpression, ast.KindText)
	if ns[1].Code != "user.name" || ns[2].Value != "." {
		t.Fatalf("unexpected split %q %q", ns[1].Code, ns[2].Value)
	}

	_, ns = parseOK(t, `@user("x") and @t("k").upper()`)
	expectKinds(t, ns, ast.KindSimpleExpression, ast.KindText, ast.KindSimpleExpression)
	if ns[2].Code != `t("k").upper()` {
		t.Fatalf("unexpected call chain %q", ns[2].Code)
	}

	_, ns = parseOK(t, "Contact @support for help.\n")
	expectKinds(t, ns, ast.KindText, ast.KindSimpleExpression, ast.KindText)
}

func TestParenAndRawParenExpressions(t *testing.T) {
	_, ns := parseOK(t, "Total: @(a + b)! @!(html)")
	expectKinds(t, ns, ast.KindText, ast.KindParenExpression, ast.KindText, ast.KindParenExpression)
	if ns[1].Code != "a + b" || !ns[1].Escaped {
		t.Fatalf("unexpected paren expr %+v", ns[1])
	}
	if ns[3].Code != "html" || ns[3].Escaped {
		t.Fatalf("unexpected raw paren expr %+v", ns[3])
	}
}

func TestCodeBlockAndComment(t *testing.T) {
	_, ns := parseOK(t, "a@* hidden @x *@b@{ let x = {\"k\": 1} }")
	expectKinds(t, ns, ast.KindText, ast.KindComment, ast.KindText, ast.KindCodeBlock)
	if ns[1].Value != " hidden @x " {
		t.Fatalf("comment body %q", ns[1].Value)
	}
	if ns[3].Code != `let x = {"k": 1}` {
		t.Fatalf("code block %q", ns[3].Code)
	}
}

func TestIfChain(t *testing.T) {
	res, ns := parseOK(t, "@if count > 0 { @count } else if count < 0 { neg } else { zero }")
	expectKinds(t, ns, ast.KindConditionalOrLoop)
	cls := ns[0].Clauses
	if len(cls) != 3 {
		t.Fatalf("want 3 clauses, got %d", len(cls))
	}
	if cls[0].Kind != ast.ClauseIf || cls[0].Head != "count > 0" {
		t.Fatalf("clause 0: %+v", cls[0])
	}
	if cls[1].Kind != ast.ClauseElseIf || cls[1].Head != "count < 0" {
		t.Fatalf("clause 1: %+v", cls[1])
	}
	if cls[2].Kind != ast.ClauseElse || cls[2].Head != "" {
		t.Fatalf("clause 2: %+v", cls[2])
	}
	body := nodes(res.Builder, cls[0].Body)
	expectKinds(t, body, ast.KindInnerText, ast.KindSimpleExpression, ast.KindInnerText)
}

func TestElseWordAfterBlockIsText(t *testing.T) {
	_, ns := parseOK(t, "@if a { x }\nelse we go")
	expectKinds(t, ns, ast.KindConditionalOrLoop, ast.KindText)
	if ns[1].Value != "\nelse we go" {
		t.Fatalf("unexpected text %q", ns[1].Value)
	}
}

func TestLoopsAndBalancedTextBraces(t *testing.T) {
	res, ns := parseOK(t, "@for item in items { <li>@item</li> }@while busy { .a { color: red } @break }")
	expectKinds(t, ns, ast.KindConditionalOrLoop, ast.KindConditionalOrLoop)
	if c := ns[0].Clauses[0]; c.Kind != ast.ClauseFor || c.Head != "item in items" {
		t.Fatalf("for clause %+v", c)
	}
	w := ns[1].Clauses[0]
	if w.Kind != ast.ClauseWhile {
		t.Fatalf("while clause %+v", w)
	}
	body := nodes(res.Builder, w.Body)
	expectKinds(t, body, ast.KindInnerText, ast.KindBreak, ast.KindInnerText)
	if body[0].Value != " .a { color: red } " {
		t.Fatalf("inner text %q", body[0].Value)
	}
}

func TestMatchArmsKeepOrder(t *testing.T) {
	src := `@match status {
	"on" => { On }
	"off" | "idle" => { Off },
	_ => { ? }
}`
	res, ns := parseOK(t, src)
	expectKinds(t, ns, ast.KindMatchExpression)
	m := ns[0]
	if m.Code != "status" {
		t.Fatalf("head %q", m.Code)
	}
	want := []string{`"on"`, `"off" | "idle"`, "_"}
	if len(m.Arms) != len(want) {
		t.Fatalf("want %d arms, got %d", len(want), len(m.Arms))
	}
	for i, w := range want {
		if m.Arms[i].Pattern != w {
			t.Errorf("arm %d: want %q got %q", i, w, m.Arms[i].Pattern)
		}
	}
	if b := nodes(res.Builder, m.Arms[1].Body); len(b) != 1 || b[0].Value != " Off " {
		t.Fatalf("arm body %+v", b)
	}
}

func TestComponentAttributes(t *testing.T) {
	src := `<Card title="Hi" count={n + 1} flag ratio=-1.5 by=@user.name footer=<>F @x</>>body @y</Card>`
	res, ns := parseOK(t, src)
	expectKinds(t, ns, ast.KindComponent)
	c := ns[0]
	if c.Name != "Card" || c.SelfClosing {
		t.Fatalf("component %+v", c)
	}
	type attr struct {
		name  string
		kind  ast.AttrKind
		value string
	}
	want := []attr{
		{"title", ast.AttrString, "Hi"},
		{"count", ast.AttrExpr, "n + 1"},
		{"flag", ast.AttrFlag, "true"},
		{"ratio", ast.AttrNumber, "-1.5"},
		{"by", ast.AttrExpr, "user.name"},
		{"footer", ast.AttrBlock, ""},
	}
	if len(c.Attrs) != len(want) {
		t.Fatalf("want %d attrs got %d", len(want), len(c.Attrs))
	}
	for i, w := range want {
		a := c.Attrs[i]
		if a.Name != w.name || a.Kind != w.kind || a.Value != w.value {
			t.Errorf("attr %d: want %+v got %s/%s/%q", i, w, a.Name, a.Kind, a.Value)
		}
	}
	expectKinds(t, nodes(res.Builder, c.Attrs[5].Body), ast.KindText, ast.KindSimpleExpression)
	expectKinds(t, nodes(res.Builder, c.Children), ast.KindText, ast.KindSimpleExpression)
}

func TestSelfClosingAndNestedComponents(t *testing.T) {
	res, ns := parseOK(t, `<Box><Card/> and <Card a="1" /></Box><p>x</p>`)
	expectKinds(t, ns, ast.KindComponent, ast.KindText)
	inner := nodes(res.Builder, ns[0].Children)
	expectKinds(t, inner, ast.KindComponent, ast.KindText, ast.KindComponent)
	if !inner[0].SelfClosing || !inner[2].SelfClosing {
		t.Fatalf("expected self-closing tags")
	}
}

func TestCompositionDirectives(t *testing.T) {
	src := "@extends(\"layouts/base.tpl\")\n" +
		"@use \"components/user-card.tpl\"\n" +
		"@use \"c.tpl\" as Box\n" +
		"@param title\n" +
		"@param count = { 0 }\n" +
		"@section sidebar { <p>S</p> }\n" +
		"@section(\"title\", \"Home\")\n" +
		"Body"
	_, ns := parseOK(t, src)
	expectKinds(t, ns,
		ast.KindExtendsDirective, ast.KindUseDirective, ast.KindUseDirective,
		ast.KindParamDecl, ast.KindParamDecl, ast.KindSectionBlock, ast.KindSectionDirective, ast.KindText)

	if ns[0].Path != "layouts/base.tpl" {
		t.Fatalf("extends path %q", ns[0].Path)
	}
	if ns[1].Name != "UserCard" || ns[1].Path != "components/user-card.tpl" {
		t.Fatalf("use %+v", ns[1])
	}
	if ns[2].Name != "Box" {
		t.Fatalf("alias %q", ns[2].Name)
	}
	if ns[3].Name != "title" || ns[3].HasDefault {
		t.Fatalf("param %+v", ns[3])
	}
	if ns[4].Name != "count" || !ns[4].HasDefault || ns[4].Code != "0" {
		t.Fatalf("param default %+v", ns[4])
	}
	if ns[5].Name != "sidebar" || len(ns[5].Children) != 1 {
		t.Fatalf("section block %+v", ns[5])
	}
	if ns[6].Name != "title" || ns[6].Code != `"Home"` {
		t.Fatalf("inline section %+v", ns[6])
	}
	if ns[7].Value != "Body" {
		t.Fatalf("trailing text %q", ns[7].Value)
	}
}

func TestRenderSlotsAndRaw(t *testing.T) {
	_, ns := parseOK(t, `@render("sidebar")@render("footer", optional)@render_body@children@continue@raw <b>@x</b> @endraw`)
	expectKinds(t, ns, ast.KindRenderDirective, ast.KindRenderDirective, ast.KindRenderBody,
		ast.KindChildContent, ast.KindContinue, ast.KindRaw)
	if ns[0].Name != "sidebar" || ns[0].Optional {
		t.Fatalf("render %+v", ns[0])
	}
	if ns[1].Name != "footer" || !ns[1].Optional {
		t.Fatalf("optional render %+v", ns[1])
	}
	if ns[5].Value != " <b>@x</b> " {
		t.Fatalf("raw %q", ns[5].Value)
	}
}

func TestFatalStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		code  diag.Code
		start uint32
	}{
		{"unclosed block", "@if x { abc", diag.SynUnclosedBlock, 6},
		{"unknown directive", "@iff x { y }", diag.SynUnknownDirective, 0},
		{"unclosed component body", `<Card title="x">abc`, diag.SynUnclosedTag, 0},
		{"unclosed component tag", `<Card title="x"`, diag.SynUnclosedTag, 0},
		{"unclosed comment", "a @* never", diag.SynUnclosedComment, 2},
		{"unclosed raw", "@raw x", diag.SynUnclosedRaw, 0},
		{"unclosed code block", "@{ let x = 1", diag.LexUnclosedDelimiter, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, bag := parseWith(t, tt.src, Options{})
			if !res.Fatal {
				t.Fatalf("expected fatal parse, got %s", diagnosticsSummary(bag))
			}
			d := expectCode(t, bag, tt.code)
			if d.Primary.Start != tt.start {
				t.Fatalf("want start %d got %d", tt.start, d.Primary.Start)
			}
		})
	}
}

func TestUnknownDirectiveSuggestion(t *testing.T) {
	_, bag := parseWith(t, "@sectoin(\"x\", y)", Options{})
	d := expectCode(t, bag, diag.SynUnknownDirective)
	if !strings.Contains(d.Message, "did you mean '@section'") || !strings.Contains(d.Message, "@render_body") {
		t.Fatalf("unexpected message %q", d.Message)
	}
}

func TestRecoverableErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
	}{
		{"unterminated string in expression", `@f("abc`, diag.LexUnterminatedString},
		{"mismatched closing tag", "<Card>x</Box>", diag.SynMismatchedTag},
		{"stray else", "@else", diag.SynStrayElse},
		{"lone marker", "x @ y", diag.SynExpectIdentifier},
		{"stray closing tag", "a</Card>b", diag.SynUnexpectedCloseTag},
		{"extends inside block", `@if a { @extends("x.tpl") }`, diag.SynDirectivePosition},
		{"bad render args", `@render(name)`, diag.SynBadDirectiveArgs},
		{"empty if head", "@if { x }", diag.SynEmptyHead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, bag := parseWith(t, tt.src, Options{})
			if res.Fatal {
				t.Fatalf("did not expect a fatal parse: %s", diagnosticsSummary(bag))
			}
			expectCode(t, bag, tt.code)
		})
	}
}

func TestUnterminatedStringReportsLiteralStart(t *testing.T) {
	_, bag := parseWith(t, `@f("abc`, Options{})
	d := expectCode(t, bag, diag.LexUnterminatedString)
	if d.Primary.Start != 3 {
		t.Fatalf("want start 3, got %d", d.Primary.Start)
	}
}

func TestDepthGuard(t *testing.T) {
	src := strings.Repeat("@if a { ", 40) + strings.Repeat("} ", 40)
	res, bag := parseWith(t, src, Options{MaxDepth: 16})
	if !res.Fatal {
		t.Fatalf("expected fatal nesting error")
	}
	expectCode(t, bag, diag.SynNestingTooDeep)

	res, bag = parseWith(t, src, Options{})
	if res.Fatal || bag.HasErrors() {
		t.Fatalf("default depth should accept 40 levels: %s", diagnosticsSummary(bag))
	}
}

func TestMaxErrorsStopsParsing(t *testing.T) {
	_, bag := parseWith(t, "@else @else @else @else", Options{MaxErrors: 2})
	if bag.Len() != 2 {
		t.Fatalf("want 2 diagnostics, got %d", bag.Len())
	}
}

func TestDefaultAlias(t *testing.T) {
	tests := map[string]string{
		"components/card.tpl":      "Card",
		"components/user-card.tpl": "UserCard",
		"nav_bar.tpl":              "NavBar",
		`dir\item.list.tpl`:        "Item",
	}
	for in, want := range tests {
		if got := DefaultAlias(in); got != want {
			t.Errorf("%q: want %q got %q", in, want, got)
		}
	}
}
