package codegen

import (
	"context"
	"strings"
	"testing"

	"quill/internal/diag"
	"quill/internal/plan"
	"quill/internal/resolve"
	"quill/internal/source"
)

func compileMap(t *testing.T, files resolve.MapLoader, root string) (*plan.Program, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	rbag := diag.NewBag(0)
	g, err := resolve.New(files, fs, diag.BagReporter{Bag: rbag}, resolve.Options{Extension: ".tpl"}).
		Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return Compile(context.Background(), g, Options{})
}

func mustCompile(t *testing.T, files resolve.MapLoader, root string) *plan.Program {
	t.Helper()
	prog, bag := compileMap(t, files, root)
	if prog == nil || bag.HasErrors() {
		t.Fatalf("compile failed: %d diagnostics", bag.Len())
	}
	return prog
}

// visible drops whitespace-only literals.
func visible(instrs []plan.Instr) []plan.Instr {
	out := make([]plan.Instr, 0, len(instrs))
	for _, in := range instrs {
		if in.Op == plan.OpText && strings.TrimSpace(in.Text) == "" {
			continue
		}
		out = append(out, in)
	}
	return out
}

// flatten renders literals and splice slots of a stream, ignoring
// whitespace, descending into control bodies.
func flatten(instrs []plan.Instr) string {
	var sb strings.Builder
	var walk func([]plan.Instr)
	walk = func(ins []plan.Instr) {
		for _, in := range ins {
			switch in.Op {
			case plan.OpText:
				sb.WriteString(in.Text)
			case plan.OpSplice:
				sb.WriteString("[" + in.Name + "]")
			case plan.OpExpr:
				sb.WriteString("{" + in.Code + "}")
			}
			walk(in.Body)
			for _, c := range in.Clauses {
				walk(c.Body)
			}
		}
	}
	walk(instrs)
	return strings.Join(strings.Fields(sb.String()), "")
}

func TestTextAndExpression(t *testing.T) {
	prog := mustCompile(t, resolve.MapLoader{"p.tpl": "Hi @name"}, "p.tpl")
	root := prog.RootUnit()
	if len(root.Instrs) != 2 {
		t.Fatalf("instrs = %d, want 2:\n%s", len(root.Instrs), prog.Listing())
	}
	if in := root.Instrs[0]; in.Op != plan.OpText || in.Text != "Hi " {
		t.Fatalf("first %+v", in)
	}
	if in := root.Instrs[1]; in.Op != plan.OpExpr || in.Code != "name" || !in.Escaped {
		t.Fatalf("second %+v", in)
	}
	if root.StaticSize != 3 {
		t.Fatalf("static size %d", root.StaticSize)
	}
}

func TestRawExpressionAndMarkerCollapse(t *testing.T) {
	prog := mustCompile(t, resolve.MapLoader{"p.tpl": "a@@b @!html"}, "p.tpl")
	instrs := prog.RootUnit().Instrs
	if instrs[0].Op != plan.OpText || instrs[0].Text != "a@b " {
		t.Fatalf("literal %+v", instrs[0])
	}
	if in := instrs[len(instrs)-1]; in.Op != plan.OpExpr || in.Escaped {
		t.Fatalf("raw expr %+v", in)
	}
}

func TestControlPreservesClauseOrder(t *testing.T) {
	src := "@if a { A } else if b { B } else { C }@for x in xs { @x }@match s { 1 => { one } _ => { other } }"
	prog := mustCompile(t, resolve.MapLoader{"p.tpl": src}, "p.tpl")
	instrs := prog.RootUnit().Instrs
	if len(instrs) != 3 {
		t.Fatalf("instrs:\n%s", prog.Listing())
	}
	ifs := instrs[0]
	if ifs.Op != plan.OpIf || len(ifs.Clauses) != 3 ||
		ifs.Clauses[0].Head != "a" || ifs.Clauses[1].Kind != plan.ClauseElseIf || ifs.Clauses[2].Kind != plan.ClauseElse {
		t.Fatalf("if %+v", ifs)
	}
	if instrs[1].Op != plan.OpFor || instrs[1].Clauses[0].Head != "x in xs" {
		t.Fatalf("for %+v", instrs[1])
	}
	m := instrs[2]
	if m.Op != plan.OpMatch || m.Code != "s" || len(m.Arms) != 2 || m.Arms[1].Pattern != "_" {
		t.Fatalf("match %+v", m)
	}
}

func TestComponentCall(t *testing.T) {
	prog := mustCompile(t, resolve.MapLoader{
		"p.tpl":    "@use \"card.tpl\"\n<Card title=\"Hi\" n={x + 1} wide>body</Card>",
		"card.tpl": "@param title\n@param n = { 0 }\n@param wide = { false }\n<h2>@title</h2>@children",
	}, "p.tpl")

	instrs := visible(prog.RootUnit().Instrs)
	want := []plan.Op{plan.OpBind, plan.OpBind, plan.OpBind, plan.OpBindChildren, plan.OpInvoke}
	if len(instrs) != len(want) {
		t.Fatalf("instrs:\n%s", prog.Listing())
	}
	for i, op := range want {
		if instrs[i].Op != op {
			t.Fatalf("instr %d = %s, want %s", i, instrs[i].Op, op)
		}
	}
	if instrs[0].Bind != plan.BindString || instrs[0].Text != "Hi" {
		t.Fatalf("title bind %+v", instrs[0])
	}
	if instrs[1].Bind != plan.BindExpr || instrs[1].Code != "x + 1" {
		t.Fatalf("n bind %+v", instrs[1])
	}
	if instrs[2].Bind != plan.BindFlag {
		t.Fatalf("wide bind %+v", instrs[2])
	}
	card := plan.UnitIDFor("card.tpl")
	if instrs[4].Unit != card {
		t.Fatalf("invoke unit %s, want %s", instrs[4].Unit, card)
	}
	unit := prog.Units[card]
	if unit == nil || !unit.UsesChildren || len(unit.Params) != 3 || unit.Params[0].Name != "n" {
		t.Fatalf("card unit %+v", unit)
	}
	if prog.Order[len(prog.Order)-1] != prog.Root {
		t.Fatalf("root must be last in %v", prog.Order)
	}
}

func TestAliasesShareUnit(t *testing.T) {
	prog := mustCompile(t, resolve.MapLoader{
		"p.tpl":    "@use \"card.tpl\"\n@use \"card.tpl\" as Tile\n<Card/><Tile/>",
		"card.tpl": "C",
	}, "p.tpl")
	if len(prog.Units) != 2 {
		t.Fatalf("units = %d, want 2", len(prog.Units))
	}
	var invokes []plan.Instr
	for _, in := range visible(prog.RootUnit().Instrs) {
		if in.Op == plan.OpInvoke {
			invokes = append(invokes, in)
		}
	}
	if len(invokes) != 2 || invokes[0].Unit != invokes[1].Unit {
		t.Fatalf("aliases invoke different units:\n%s", prog.Listing())
	}
}

func TestEmptyCallBindsEmptyChildren(t *testing.T) {
	prog := mustCompile(t, resolve.MapLoader{
		"p.tpl":    "@use \"card.tpl\"\n<Card/><Card>  </Card>",
		"card.tpl": "[@children]",
	}, "p.tpl")
	instrs := visible(prog.RootUnit().Instrs)
	want := []plan.Op{plan.OpBindChildren, plan.OpInvoke, plan.OpBindChildren, plan.OpInvoke}
	if len(instrs) != len(want) {
		t.Fatalf("instrs:\n%s", prog.Listing())
	}
	for i, op := range want {
		if instrs[i].Op != op {
			t.Fatalf("instr %d = %s, want %s", i, instrs[i].Op, op)
		}
		if op == plan.OpBindChildren && len(instrs[i].Body) != 0 {
			t.Fatalf("instr %d binds %d child instructions, want none", i, len(instrs[i].Body))
		}
	}
}

func TestLayoutChainComposition(t *testing.T) {
	prog := mustCompile(t, resolve.MapLoader{
		"base.tpl": "<html>@render(\"title\")|@render_body|</html>",
		"mid.tpl":  "@extends(\"base.tpl\")\n@section(\"title\", \"Mid\")\n<main>@render_body</main>",
		"page.tpl": "@extends(\"mid.tpl\")\n@section(\"title\", \"Page\")\nP",
	}, "page.tpl")

	root := prog.RootUnit()
	if got := flatten(root.Instrs); got != "<html>[title]|<main>P</main>|</html>" {
		t.Fatalf("composed stream %q", got)
	}
	title, ok := prog.Section("title")
	if !ok || len(title) != 1 || title[0].Code != `"Page"` {
		t.Fatalf("inner section must win: %+v", title)
	}
}

func TestBodySlotInsideControl(t *testing.T) {
	prog := mustCompile(t, resolve.MapLoader{
		"base.tpl": "@if show { <b>@render_body</b> }",
		"page.tpl": "@extends(\"base.tpl\")\nX",
	}, "page.tpl")
	if got := flatten(prog.RootUnit().Instrs); got != "<b>X</b>" {
		t.Fatalf("composed %q", got)
	}
}

func TestSectionBlockLowered(t *testing.T) {
	prog := mustCompile(t, resolve.MapLoader{
		"base.tpl": "@render(\"side\", optional)@render_body",
		"page.tpl": "@extends(\"base.tpl\")\n@section side { <p>@who</p> }\n@section side { ignored }\nB",
	}, "page.tpl")
	side, ok := prog.Section("side")
	if !ok || flatten(side) != "<p>{who}</p>" {
		t.Fatalf("side section %q", flatten(side))
	}
}

func TestUnresolvedComponentYieldsNoProgram(t *testing.T) {
	prog, bag := compileMap(t, resolve.MapLoader{"p.tpl": "<Missing/>"}, "p.tpl")
	if prog != nil {
		t.Fatalf("want no program")
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.GenUnresolvedComponent {
		t.Fatalf("diagnostics %d", bag.Len())
	}
}
