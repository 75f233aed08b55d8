package sema

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"quill/internal/diag"
	"quill/internal/resolve"
	"quill/internal/source"
)

type outcome struct {
	fs  *source.FileSet
	bag *diag.Bag
	res Result
}

func analyze(t *testing.T, files resolve.MapLoader, root string, opts Options) outcome {
	t.Helper()
	fs := source.NewFileSet()
	bag := diag.NewBag(0)
	rep := diag.BagReporter{Bag: bag}
	g, err := resolve.New(files, fs, rep, resolve.Options{Extension: ".tpl"}).Resolve(context.Background(), root)
	if err != nil {
		t.Fatalf("resolve: %v (%s)", err, summary(bag))
	}
	opts.Reporter = rep
	return outcome{fs: fs, bag: bag, res: Analyze(context.Background(), g, opts)}
}

func summary(bag *diag.Bag) string {
	if bag.Len() == 0 {
		return "<none>"
	}
	lines := make([]string, 0, bag.Len())
	for _, d := range bag.Items() {
		lines = append(lines, fmt.Sprintf("[%s %s] %s", d.Severity, d.Code.ID(), d.Message))
	}
	return strings.Join(lines, "; ")
}

func (o outcome) find(code diag.Code) []*diag.Diagnostic {
	return o.bag.Filter(func(d *diag.Diagnostic) bool { return d.Code == code })
}

func (o outcome) expect(t *testing.T, code diag.Code, n int) []*diag.Diagnostic {
	t.Helper()
	got := o.find(code)
	if len(got) != n {
		t.Fatalf("%s: got %d, want %d (%s)", code.ID(), len(got), n, summary(o.bag))
	}
	return got
}

func TestMissingComponentSuggestsAlias(t *testing.T) {
	o := analyze(t, resolve.MapLoader{
		"page.tpl": "@use \"card.tpl\"\n<Crad/>",
		"card.tpl": "C",
	}, "page.tpl", Options{})

	d := o.expect(t, diag.SemaMissingComponent, 1)[0]
	if d.Severity != diag.SevError || !o.res.Fatal() {
		t.Fatalf("missing component must be fatal: %s", summary(o.bag))
	}
	if len(d.Notes) != 1 || !strings.Contains(d.Notes[0].Msg, "'Card'") {
		t.Fatalf("want suggestion note, got %+v", d.Notes)
	}
	o.expect(t, diag.SemaUnusedImport, 1)
}

func TestComponentParameters(t *testing.T) {
	card := "@param title\n@param size = { 1 }\n<h2>@title</h2>"
	cases := []struct {
		name    string
		call    string
		code    diag.Code
		count   int
		fatal   bool
		warning int
	}{
		{"all required given", `<Card title="x"/>`, diag.SemaMissingParam, 0, false, 0},
		{"required missing", `<Card size={2}/>`, diag.SemaMissingParam, 1, true, 0},
		{"unknown attribute", `<Card title="x" colour="red"/>`, diag.SemaUnknownParam, 1, false, 1},
		{"duplicate attribute", `<Card title="x" title="y"/>`, diag.SemaDuplicateAttribute, 1, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := analyze(t, resolve.MapLoader{
				"page.tpl": "@use \"card.tpl\"\n" + tc.call,
				"card.tpl": card,
			}, "page.tpl", Options{})
			o.expect(t, tc.code, tc.count)
			if o.res.Fatal() != tc.fatal || o.res.Warnings != tc.warning {
				t.Fatalf("result %+v, want fatal=%v warnings=%d (%s)", o.res, tc.fatal, tc.warning, summary(o.bag))
			}
		})
	}
}

func TestMissingParamPointsAtDeclaration(t *testing.T) {
	o := analyze(t, resolve.MapLoader{
		"page.tpl": "@use \"card.tpl\"\n<Card/>",
		"card.tpl": "@param title\n@title",
	}, "page.tpl", Options{})
	d := o.expect(t, diag.SemaMissingParam, 1)[0]
	if len(d.Notes) != 1 || o.fs.Get(d.Notes[0].Span.File).Path != "card.tpl" {
		t.Fatalf("note should point into card.tpl: %+v", d.Notes)
	}
	if o.fs.Get(d.Primary.File).Path != "page.tpl" {
		t.Fatalf("primary should be the call site")
	}
}

func TestBodyAgainstChildren(t *testing.T) {
	cases := []struct {
		name string
		card string
		call string
		code diag.Code
	}{
		{"body unused", "C", "<Card>hello</Card>", diag.SemaBodyUnused},
		{"body expected", "<div>@children</div>", "<Card/>", diag.SemaExpectedBody},
		{"whitespace body counts as empty", "<div>@children</div>", "<Card>  \n </Card>", diag.SemaExpectedBody},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := analyze(t, resolve.MapLoader{
				"page.tpl": "@use \"card.tpl\"\n" + tc.call,
				"card.tpl": tc.card,
			}, "page.tpl", Options{})
			d := o.expect(t, tc.code, 1)[0]
			if d.Severity != diag.SevWarning || o.res.Fatal() {
				t.Fatalf("want a non-fatal warning: %s", summary(o.bag))
			}
		})
	}
}

func TestSections(t *testing.T) {
	layout := "<title>@render(\"title\")</title>@render(\"footer\", optional)<main>@render_body</main>"
	o := analyze(t, resolve.MapLoader{
		"base.tpl": layout,
		"page.tpl": "@extends(\"base.tpl\")\n@section(\"title\", \"Home\")\n@section aside { x }\nBody",
	}, "page.tpl", Options{})
	if o.res.Fatal() {
		t.Fatalf("unexpected errors: %s", summary(o.bag))
	}
	d := o.expect(t, diag.SemaSectionUnused, 1)[0]
	if !strings.Contains(d.Message, "'aside'") {
		t.Fatalf("message %q", d.Message)
	}
}

func TestRequiredSectionUndefined(t *testing.T) {
	o := analyze(t, resolve.MapLoader{
		"base.tpl": "@render(\"title\")@render_body",
		"page.tpl": "@extends(\"base.tpl\")\nBody",
	}, "page.tpl", Options{})
	d := o.expect(t, diag.SemaSectionUndefined, 1)[0]
	if !o.res.Fatal() || o.fs.Get(d.Primary.File).Path != "base.tpl" {
		t.Fatalf("want fatal error in base.tpl: %s", summary(o.bag))
	}
	if len(d.Chain) != 1 || o.fs.Get(d.Chain[0].File).Path != "page.tpl" {
		t.Fatalf("chain should lead back to page.tpl: %+v", d.Chain)
	}
}

func TestComponentLayoutSections(t *testing.T) {
	files := resolve.MapLoader{
		"frame.tpl": "[@render(\"title\")|@render_body]",
		"box.tpl":   "@extends(\"frame.tpl\")\n@section title { T }\ninside",
		"page.tpl":  "@use \"box.tpl\"\n<Box />",
	}
	o := analyze(t, files, "page.tpl", Options{})
	o.expect(t, diag.SemaSectionUndefined, 0)
	if o.res.Fatal() {
		t.Fatalf("component with its own layout should compile: %s", summary(o.bag))
	}

	files["box.tpl"] = "@extends(\"frame.tpl\")\ninside"
	o = analyze(t, files, "page.tpl", Options{})
	d := o.expect(t, diag.SemaSectionUndefined, 1)[0]
	if o.fs.Get(d.Primary.File).Path != "frame.tpl" {
		t.Fatalf("error should point at frame.tpl: %s", summary(o.bag))
	}
}

func TestDuplicateSectionFirstWins(t *testing.T) {
	o := analyze(t, resolve.MapLoader{
		"base.tpl": "@render(\"title\")@render_body",
		"page.tpl": "@extends(\"base.tpl\")\n@section(\"title\", \"A\")\n@section(\"title\", \"B\")\nBody",
	}, "page.tpl", Options{})
	o.expect(t, diag.SemaDuplicateSection, 1)
	o.expect(t, diag.SemaSectionUnused, 0)
	if o.res.Fatal() {
		t.Fatalf("duplicate section is a warning: %s", summary(o.bag))
	}
}

func TestLayoutWithoutRenderBody(t *testing.T) {
	o := analyze(t, resolve.MapLoader{
		"base.tpl": "<html></html>",
		"page.tpl": "@extends(\"base.tpl\")\nBody",
	}, "page.tpl", Options{})
	o.expect(t, diag.SemaBodyNotRendered, 1)

	o = analyze(t, resolve.MapLoader{
		"base.tpl": "<html></html>",
		"page.tpl": "@extends(\"base.tpl\")\n\n",
	}, "page.tpl", Options{})
	o.expect(t, diag.SemaBodyNotRendered, 0)
}

func TestLoopControl(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want int
	}{
		{"top level", "@break", 1},
		{"inside for", "@for x in xs { @continue }", 0},
		{"inside while", "@while busy { @if done { @break } }", 0},
		{"component body resets", "@use \"card.tpl\"\n@for x in xs { <Card>@break</Card> }", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := analyze(t, resolve.MapLoader{
				"page.tpl": tc.src,
				"card.tpl": "@children",
			}, "page.tpl", Options{})
			o.expect(t, diag.SemaLoopControlOutside, tc.want)
		})
	}
}

func TestFieldExistence(t *testing.T) {
	src := "@for x in items { @x.name @y }\n@{ let total = 1 }@total"
	o := analyze(t, resolve.MapLoader{"page.tpl": src}, "page.tpl", Options{Fields: []string{"items"}})
	d := o.expect(t, diag.SemaUnknownField, 1)[0]
	if d.Severity != diag.SevCaution || !strings.Contains(d.Message, "'y'") || o.res.Fatal() {
		t.Fatalf("want caution for y, got %s", summary(o.bag))
	}

	o = analyze(t, resolve.MapLoader{"page.tpl": src}, "page.tpl", Options{})
	o.expect(t, diag.SemaUnknownField, 0)
}

func TestParamsAreKnownFields(t *testing.T) {
	o := analyze(t, resolve.MapLoader{
		"page.tpl": "@use \"card.tpl\"\n<Card title={site}/>",
		"card.tpl": "@param title\n@title @other",
	}, "page.tpl", Options{Fields: []string{"site"}})
	d := o.expect(t, diag.SemaUnknownField, 1)[0]
	if !strings.Contains(d.Message, "'other'") {
		t.Fatalf("message %q", d.Message)
	}
}

func TestImplausibleExpression(t *testing.T) {
	o := analyze(t, resolve.MapLoader{"page.tpl": "@(a +) @if x > { y }"}, "page.tpl", Options{})
	o.expect(t, diag.SemaImplausibleExpr, 2)
	if o.res.Fatal() || o.res.Cautions != 2 {
		t.Fatalf("result %+v", o.res)
	}
}

func TestImports(t *testing.T) {
	o := analyze(t, resolve.MapLoader{
		"page.tpl": "@use \"card.tpl\"\n@use \"card.tpl\"\n@use \"icon.tpl\"\n<Card/>",
		"card.tpl": "C",
		"icon.tpl": "I",
	}, "page.tpl", Options{})
	o.expect(t, diag.SemaDuplicateImport, 1)
	d := o.expect(t, diag.SemaUnusedImport, 1)[0]
	if !strings.Contains(d.Message, "'Icon'") {
		t.Fatalf("message %q", d.Message)
	}
}

func TestNoWarningsDropsWarnings(t *testing.T) {
	o := analyze(t, resolve.MapLoader{
		"page.tpl": "@use \"card.tpl\"\nhi",
		"card.tpl": "C",
	}, "page.tpl", Options{NoWarnings: true})
	if o.bag.Len() != 0 || o.res.Warnings != 0 {
		t.Fatalf("warnings should be suppressed: %s", summary(o.bag))
	}
}

func TestDuplicateParamAndChildrenInPage(t *testing.T) {
	o := analyze(t, resolve.MapLoader{"page.tpl": "@param a\n@param a\n@children"}, "page.tpl", Options{})
	o.expect(t, diag.SemaDuplicateParam, 1)
	o.expect(t, diag.SemaChildrenInPage, 1)
}

func TestComponentFindingCarriesChain(t *testing.T) {
	o := analyze(t, resolve.MapLoader{
		"page.tpl": "@use \"card.tpl\"\n<Card/>",
		"card.tpl": "@break",
	}, "page.tpl", Options{})
	d := o.expect(t, diag.SemaLoopControlOutside, 1)[0]
	if o.fs.Get(d.Primary.File).Path != "card.tpl" {
		t.Fatalf("primary in %s", o.fs.Get(d.Primary.File).Path)
	}
	if len(d.Chain) != 1 || o.fs.Get(d.Chain[0].File).Path != "page.tpl" {
		t.Fatalf("chain %+v", d.Chain)
	}
}
