package testkit

import (
	"context"
	"testing"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/parser"
	"quill/internal/resolve"
	"quill/internal/source"
)

func TestSpanInvariantsHoldForParsedTemplates(t *testing.T) {
	inputs := []string{
		"",
		"Hi @name!",
		"@if a > 1 { <b>yes</b> } else if b { no } else { @(c) }",
		"@for x in xs { @x @continue }",
		"@match s { \"on\" => { on } \"a\" | \"b\" => { ab } _ => { other } }",
		"<Card title=\"t\" n={1 + 2} flag blk=<>frag @x</> >body</Card>",
		"@section head { <title>x</title> }\n@render(\"head\", optional)",
		"@{ let x = 1 }@* note *@@!raw",
	}
	for _, in := range inputs {
		fs := source.NewFileSet()
		id := fs.AddVirtual("t.tpl", []byte(in))
		bag := diag.NewBag(0)
		res := parser.ParseFile(fs, id, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
		if bag.HasErrors() {
			t.Fatalf("%q: unexpected syntax errors", in)
		}
		if err := CheckSpanInvariants(res.Builder, res.Root, fs.Get(id)); err != nil {
			t.Fatalf("%q: %v", in, err)
		}
	}
}

func TestSpanInvariantsCatchEscapingChild(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("t.tpl", []byte("abc"))
	b := ast.NewBuilder(id, ast.Hints{})
	root := b.Add(ast.Node{Kind: ast.KindTemplate, Span: source.Span{File: id, End: 3}})
	child := b.NewText(ast.KindText, source.Span{File: id, Start: 2, End: 5}, "c")
	b.Append(root, child)
	if err := CheckSpanInvariants(b, root, fs.Get(id)); err == nil {
		t.Fatalf("escaping child accepted")
	}
}

func TestGraphInvariants(t *testing.T) {
	files := resolve.MapLoader{
		"base.tpl": "<html>@render_body</html>",
		"card.tpl": "@param t\n@t",
		"page.tpl": "@extends(\"base.tpl\")\n@use \"card.tpl\" as Card\n<Card t=\"x\" />",
	}
	fs := source.NewFileSet()
	r := resolve.New(files, fs, diag.BagReporter{Bag: diag.NewBag(0)}, resolve.Options{Extension: ".tpl"})
	g, err := r.Resolve(context.Background(), "page.tpl")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := CheckGraphInvariants(g); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	g.Order[0], g.Order[len(g.Order)-1] = g.Order[len(g.Order)-1], g.Order[0]
	if err := CheckGraphInvariants(g); err == nil {
		t.Fatalf("shuffled order accepted")
	}
}
