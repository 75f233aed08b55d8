package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"quill/internal/diag"
	"quill/internal/parser"
	"quill/internal/source"
)

func parseForDump(t *testing.T, src string) (*source.FileSet, parser.Result) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("page.tpl", []byte(src))
	res := parser.ParseFile(fs, id, parser.Options{Reporter: diag.BagReporter{Bag: diag.NewBag(0)}})
	return fs, res
}

func TestFormatASTPretty(t *testing.T) {
	fs, res := parseForDump(t, "@if ok { <Card title=\"x\" /> }")
	var buf bytes.Buffer
	if err := FormatASTPretty(&buf, res.Builder, res.Root, fs); err != nil {
		t.Fatalf("format: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"page.tpl (span: 1:1-",
		"└─ ConditionalOrLoop",
		"└─ if ok",
		"Component <Card />",
		`attr title: string "x"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatASTJSON(t *testing.T) {
	_, res := parseForDump(t, "Hi @name")
	var buf bytes.Buffer
	if err := FormatASTJSON(&buf, res.Builder, res.Root); err != nil {
		t.Fatalf("format: %v", err)
	}
	var out ASTNodeOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Type != "Template" || out.Text != "page.tpl" || len(out.Children) != 2 {
		t.Fatalf("root %+v", out)
	}
	expr := out.Children[1]
	if expr.Type != "SimpleExpression" || expr.Fields["code"] != "name" || expr.Fields["escaped"] != true {
		t.Fatalf("expression %+v", expr)
	}
}
